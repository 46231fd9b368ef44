package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/calderamotors/edge-cache/pkg/docstore"
	"github.com/calderamotors/edge-cache/pkg/invalidate"
	"github.com/calderamotors/edge-cache/pkg/policy"
)

// handleDocuments proxies a normalized read from the document store.
// Honors If-None-Match against the payload fingerprint; the response
// carries the policy's Cache-Control so downstream caches can hold it.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	if collection == "" {
		writeError(w, badRequest("collection query parameter is required"))
		return
	}
	documentID := r.URL.Query().Get("document")

	var payload any
	var etag string
	var err error
	if documentID != "" {
		var result *docstore.DocumentResult
		result, err = s.docs.FetchDocument(r.Context(), collection, documentID)
		if err == nil {
			payload = result.Document.Plain()
			etag = result.ETag
		}
	} else {
		var result *docstore.CollectionResult
		result, err = s.docs.FetchCollection(r.Context(), collection)
		if err == nil {
			plain := make([]map[string]any, 0, len(result.Documents))
			for _, doc := range result.Documents {
				m := doc.Plain()
				m["id"] = doc.ID
				plain = append(plain, m)
			}
			payload = plain
			etag = result.ETag
		}
	}
	if err != nil {
		writeError(w, mapDocstoreError(err))
		return
	}

	pol := policy.Classify(r.URL.Path)
	w.Header().Set("Cache-Control", pol.HeaderValue())
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Accept-Encoding")

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		s.logger.Debug().
			Str("collection", collection).
			Str("document_id", documentID).
			Str("etag", etag).
			Msg("Conditional request matched, responding 304")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// mapDocstoreError converts fetch errors into API responses. Upstream
// failures surface as 502 with the upstream status, never as a silent
// fallback.
func mapDocstoreError(err error) *apiError {
	if errors.Is(err, docstore.ErrNotFound) {
		return notFound("Document not found")
	}

	var upstream *docstore.UpstreamError
	if errors.As(err, &upstream) {
		status := upstream.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return &apiError{
			StatusCode: status,
			Code:       "UPSTREAM_ERROR",
			Message:    fmt.Sprintf("Document store returned status %d", upstream.StatusCode),
		}
	}
	return upstreamUnavailable("Document store unreachable")
}

// handleInvalidate accepts a mutation event from the administrative
// surface and dispatches the purge fan-out. The bearer check already ran;
// a partial failure is reported in the payload, not as an error status,
// because the triggering mutation has already committed.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var event invalidate.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, badRequest("Request body is not valid JSON"))
		return
	}
	if err := event.Validate(); err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	event.ReceivedAt = time.Now().UTC()

	s.logger.Info().
		Str("request_id", requestID(r.Context())).
		Str("state", string(invalidate.StateAuthorized)).
		Str("collection", event.Collection).
		Str("document_id", event.DocumentID).
		Str("action", string(event.Action)).
		Msg("Invalidation authorized")

	result := s.dispatcher.Dispatch(r.Context(), event)

	message := fmt.Sprintf("Invalidation for %s dispatched", event.Collection)
	if result.State == invalidate.StatePartiallyFailed {
		message = fmt.Sprintf("Invalidation for %s partially failed", event.Collection)
	}

	body := map[string]any{
		"success": true,
		"message": message,
		"state":   result.State,
	}
	if len(result.Warnings) > 0 {
		body["warnings"] = result.Warnings
	}
	writeJSON(w, http.StatusOK, body)
}

// handleCacheStatus reports edge-provider connectivity and echoes the
// non-secret configuration fields.
func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	providerStatus := "ok"
	if err := s.provider.Ping(r.Context()); err != nil {
		providerStatus = fmt.Sprintf("unreachable: %v", err)
	}
	storeStatus := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		storeStatus = fmt.Sprintf("unreachable: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"provider": map[string]any{
			"name":         s.provider.Name(),
			"status":       providerStatus,
			"supportsTags": s.provider.SupportsTags(),
		},
		"store": map[string]any{
			"type":   s.cacheType,
			"status": storeStatus,
		},
		"project": s.projectID,
	})
}

// handleRates serves the cached currency conversion rate.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if s.rates == nil {
		writeError(w, notFound("Rates are not configured"))
		return
	}

	rate, err := s.rates.Get(r.Context())
	if err != nil {
		writeError(w, upstreamUnavailable("Rate source unreachable"))
		return
	}

	pol := policy.Classify(r.URL.Path)
	w.Header().Set("Cache-Control", pol.HeaderValue())
	writeJSON(w, http.StatusOK, rate)
}

// handleHealthz is the liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
