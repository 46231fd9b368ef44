package server

import (
	"encoding/json"
	"net/http"
)

// apiError is a structured error response with an HTTP status.
type apiError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *apiError) Error() string {
	return e.Message
}

func badRequest(message string) *apiError {
	return &apiError{StatusCode: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}
}

func unauthorized(message string) *apiError {
	if message == "" {
		message = "Authentication required"
	}
	return &apiError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

func upstreamUnavailable(message string) *apiError {
	if message == "" {
		message = "Upstream temporarily unavailable"
	}
	return &apiError{StatusCode: http.StatusBadGateway, Code: "UPSTREAM_UNAVAILABLE", Message: message}
}

func notFound(message string) *apiError {
	if message == "" {
		message = "Resource not found"
	}
	return &apiError{StatusCode: http.StatusNotFound, Code: "NOT_FOUND", Message: message}
}

func internalError(message string) *apiError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &apiError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: message}
}

// writeJSON sends a JSON body with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError sends a structured error response.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apiError)
	if !ok {
		apiErr = internalError("")
	}

	writeJSON(w, apiErr.StatusCode, map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}
