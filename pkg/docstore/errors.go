package docstore

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx upstream errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx upstream errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// UpstreamError carries the status and body of a failed document-store
// response. It is never swallowed here; callers decide fallback policy.
type UpstreamError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("document store error (status %d): %s", e.StatusCode, e.Body)
}

// Class classifies the error for metrics and retry decisions.
func (e *UpstreamError) Class() ErrorClass {
	if e.StatusCode >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

// classify categorizes any error from the fetch path. A missing document is
// an authoritative answer, not a transient fault.
func classify(err error) ErrorClass {
	if errors.Is(err, ErrNotFound) {
		return ErrorClassClient
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Class()
	}
	return ErrorClassNetwork
}

// shouldRetry reports whether an error class warrants another attempt.
// 4xx responses are authoritative and never retried.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
