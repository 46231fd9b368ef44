// Package testutil provides testing utilities for the edge cache service.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock document-store endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockStore is a configurable mock document-store server for testing.
type MockStore struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastRequestQuery  map[string][]string
}

// NewMockStore creates a new mock document-store server.
func NewMockStore() *MockStore {
	mock := &MockStore{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestQuery = r.URL.Query()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Unknown resource
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"code": 404, "status": "NOT_FOUND"}}`)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockStore) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockStore) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.LastRequestQuery = nil
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockStore) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// SetHandler sets a custom handler for a specific path.
func (m *MockStore) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockStore) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// documentsPath builds the store resource path for a project collection.
func documentsPath(project, collection string) string {
	return fmt.Sprintf("/projects/%s/databases/(default)/documents/%s", project, collection)
}

// SetDocument configures a wire document at the store's document path.
// Fields are given as already-enveloped wire values.
func (m *MockStore) SetDocument(project, collection, id string, fields map[string]any) {
	body := map[string]any{
		"name":       fmt.Sprintf("projects/%s/databases/(default)/documents/%s/%s", project, collection, id),
		"fields":     fields,
		"createTime": "2024-01-01T00:00:00Z",
		"updateTime": time.Now().UTC().Format(time.RFC3339),
	}
	data, _ := json.Marshal(body)
	m.SetResponse(documentsPath(project, collection)+"/"+id, MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
	})
}

// SetCollection configures a single-page collection listing.
func (m *MockStore) SetCollection(project, collection string, documents []map[string]any) {
	body := map[string]any{"documents": documents}
	data, _ := json.Marshal(body)
	m.SetResponse(documentsPath(project, collection), MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
	})
}

// SetPagedCollection configures a two-page listing exercising page token
// chaining: the first request returns pageOne plus a token, the request
// carrying the token returns pageTwo.
func (m *MockStore) SetPagedCollection(project, collection, token string, pageOne, pageTwo []map[string]any) {
	m.SetHandler(documentsPath(project, collection), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		var body map[string]any
		if r.URL.Query().Get("pageToken") == token {
			body = map[string]any{"documents": pageTwo}
		} else {
			body = map[string]any{"documents": pageOne, "nextPageToken": token}
		}
		data, _ := json.Marshal(body)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})
}

// WireDocument builds a raw wire document for collection listings.
func WireDocument(project, collection, id string, fields map[string]any) map[string]any {
	return map[string]any{
		"name":   fmt.Sprintf("projects/%s/databases/(default)/documents/%s/%s", project, collection, id),
		"fields": fields,
	}
}

// NewServerErrorResponse creates a 503 upstream failure response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"error": {"code": 503, "status": "UNAVAILABLE"}}`,
	}
}
