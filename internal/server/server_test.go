package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/calderamotors/edge-cache/internal/testutil"
	"github.com/calderamotors/edge-cache/pkg/docstore"
	"github.com/calderamotors/edge-cache/pkg/edgecache"
	"github.com/calderamotors/edge-cache/pkg/invalidate"
)

const (
	testProject = "caldera-motors"
	testSecret  = "invalidate-secret"
)

// recordingProvider tracks purge calls from the invalidation flow.
type recordingProvider struct {
	purgeAllCalls int
	tagCalls      int
	err           error
}

func (p *recordingProvider) Name() string       { return "recording" }
func (p *recordingProvider) SupportsTags() bool { return false }
func (p *recordingProvider) PurgeAll(context.Context) error {
	p.purgeAllCalls++
	return p.err
}
func (p *recordingProvider) PurgeTags(context.Context, []string) error {
	p.tagCalls++
	return p.err
}
func (p *recordingProvider) Ping(context.Context) error { return nil }

type testHarness struct {
	server   *httptest.Server
	upstream *testutil.MockStore
	provider *recordingProvider
	store    edgecache.Store
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	upstream := testutil.NewMockStore()
	t.Cleanup(upstream.Close)

	cfg := docstore.DefaultConfig(testProject)
	cfg.BaseURL = upstream.URL()
	cfg.Retry.InitialBackoff = 5 * time.Millisecond
	cfg.Retry.MaxBackoff = 20 * time.Millisecond
	docs, err := docstore.New(cfg)
	if err != nil {
		t.Fatalf("docstore.New failed: %v", err)
	}

	store := edgecache.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	provider := &recordingProvider{}
	dispatcher := invalidate.New(store, provider, invalidate.NewNoopRevalidator(zerolog.Nop()), zerolog.Nop())

	srv := New(Config{
		Docs:       docs,
		Store:      store,
		Provider:   provider,
		Dispatcher: dispatcher,
		Secret:     testSecret,
		CacheType:  "memory",
		ProjectID:  testProject,
		Logger:     zerolog.Nop(),
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testHarness{server: ts, upstream: upstream, provider: provider, store: store}
}

func (h *testHarness) get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func (h *testHarness) post(t *testing.T, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	return body
}

func TestDocuments_SingleDocument(t *testing.T) {
	h := newTestHarness(t)
	h.upstream.SetDocument(testProject, "cars", "car-123", map[string]any{
		"model": map[string]any{"stringValue": "Granada 2.8i"},
		"year":  map[string]any{"integerValue": "1982"},
	})

	resp := h.get(t, "/documents?collection=cars&document=car-123", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "max-age=") {
		t.Errorf("Cache-Control = %q, want max-age directive", cc)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("missing ETag header")
	}
	if vary := resp.Header.Get("Vary"); vary != "Accept-Encoding" {
		t.Errorf("Vary = %q", vary)
	}

	body := decodeBody(t, resp)
	if body["model"] != "Granada 2.8i" {
		t.Errorf("model = %v", body["model"])
	}
	if body["year"] != float64(1982) {
		// Integers normalize to int64 and marshal as JSON numbers.
		t.Errorf("year = %v", body["year"])
	}
}

func TestDocuments_ConditionalRequest(t *testing.T) {
	h := newTestHarness(t)
	h.upstream.SetDocument(testProject, "cars", "car-123", map[string]any{
		"model": map[string]any{"stringValue": "Granada"},
	})

	first := h.get(t, "/documents?collection=cars&document=car-123", nil)
	first.Body.Close()
	etag := first.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag on first response")
	}

	second := h.get(t, "/documents?collection=cars&document=car-123", map[string]string{
		"If-None-Match": etag,
	})
	second.Body.Close()
	if second.StatusCode != http.StatusNotModified {
		t.Errorf("status = %d, want 304", second.StatusCode)
	}
	if second.Header.Get("ETag") != etag {
		t.Errorf("304 ETag = %q, want %q", second.Header.Get("ETag"), etag)
	}
}

func TestDocuments_Collection(t *testing.T) {
	h := newTestHarness(t)
	h.upstream.SetCollection(testProject, "cars", []map[string]any{
		testutil.WireDocument(testProject, "cars", "car-1", map[string]any{
			"model": map[string]any{"stringValue": "Capri"},
		}),
		testutil.WireDocument(testProject, "cars", "car-2", map[string]any{
			"model": map[string]any{"stringValue": "Taunus"},
		}),
	})

	resp := h.get(t, "/documents?collection=cars", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	defer resp.Body.Close()
	var docs []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}
	if docs[0]["id"] != "car-1" {
		t.Errorf("docs[0].id = %v", docs[0]["id"])
	}
}

func TestDocuments_MissingCollectionParam(t *testing.T) {
	h := newTestHarness(t)

	resp := h.get(t, "/documents", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDocuments_NotFound(t *testing.T) {
	h := newTestHarness(t)

	resp := h.get(t, "/documents?collection=cars&document=missing", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDocuments_UpstreamFailure(t *testing.T) {
	h := newTestHarness(t)
	h.upstream.SetResponse("/projects/"+testProject+"/databases/(default)/documents/cars/car-1",
		testutil.NewServerErrorResponse())

	resp := h.get(t, "/documents?collection=cars&document=car-1", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want upstream 503 mirrored", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestInvalidate_RejectsBadSecret(t *testing.T) {
	h := newTestHarness(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "wrong token", token: "wrong-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.post(t, "/cache/invalidate", tt.token,
				`{"collection": "cars", "documentId": "car-1", "action": "update"}`)
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}

	if h.provider.purgeAllCalls != 0 {
		t.Errorf("provider purges = %d, want 0 side effects on rejected requests", h.provider.purgeAllCalls)
	}
}

func TestInvalidate_RejectsMalformedBody(t *testing.T) {
	h := newTestHarness(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{not json`},
		{name: "missing collection", body: `{"action": "update"}`},
		{name: "unknown action", body: `{"collection": "cars", "action": "upsert"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.post(t, "/cache/invalidate", testSecret, tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestInvalidate_Dispatches(t *testing.T) {
	h := newTestHarness(t)

	resp := h.post(t, "/cache/invalidate", testSecret,
		`{"collection": "cars", "documentId": "car-1", "action": "update"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["message"] == "" {
		t.Error("missing message")
	}
	if h.provider.purgeAllCalls != 1 {
		t.Errorf("provider purges = %d, want 1", h.provider.purgeAllCalls)
	}
}

func TestInvalidate_PartialFailureStays200(t *testing.T) {
	h := newTestHarness(t)
	h.provider.err = context.DeadlineExceeded

	resp := h.post(t, "/cache/invalidate", testSecret,
		`{"collection": "cars", "action": "update"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on partial failure", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["state"] != string(invalidate.StatePartiallyFailed) {
		t.Errorf("state = %v, want partially_failed", body["state"])
	}
	warnings, ok := body["warnings"].([]any)
	if !ok || len(warnings) == 0 {
		t.Errorf("warnings = %v, want at least one", body["warnings"])
	}
}

func TestCacheStatus(t *testing.T) {
	h := newTestHarness(t)

	unauth := h.get(t, "/cache/status", nil)
	unauth.Body.Close()
	if unauth.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthorized status = %d, want 401", unauth.StatusCode)
	}

	resp := h.get(t, "/cache/status", map[string]string{"Authorization": "Bearer " + testSecret})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["project"] != testProject {
		t.Errorf("project = %v", body["project"])
	}
	providerInfo, ok := body["provider"].(map[string]any)
	if !ok || providerInfo["name"] != "recording" {
		t.Errorf("provider = %v", body["provider"])
	}
	if strings.Contains(string(mustMarshal(t, body)), testSecret) {
		t.Error("status response must not echo the secret")
	}
}

func TestMetrics_UnmatchedPathsShareOneRouteLabel(t *testing.T) {
	h := newTestHarness(t)

	unmatched := httpRequestsTotal.WithLabelValues("unmatched", "GET", "404")
	before := promtestutil.ToFloat64(unmatched)

	for _, p := range []string{"/scan-probe-1", "/scan-probe-2/deep"} {
		resp := h.get(t, p, nil)
		resp.Body.Close()
	}

	if got := promtestutil.ToFloat64(unmatched) - before; got != 2 {
		t.Errorf("unmatched route counter delta = %v, want 2", got)
	}

	matched := httpRequestsTotal.WithLabelValues("/healthz", "GET", "200")
	matchedBefore := promtestutil.ToFloat64(matched)
	resp := h.get(t, "/healthz", nil)
	resp.Body.Close()
	if got := promtestutil.ToFloat64(matched) - matchedBefore; got != 1 {
		t.Errorf("matched route counter delta = %v, want 1", got)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHarness(t)

	resp := h.get(t, "/healthz", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestEdgeCache_ServesSecondRequestFromCache(t *testing.T) {
	h := newTestHarness(t)
	h.upstream.SetDocument(testProject, "cars", "car-123", map[string]any{
		"model": map[string]any{"stringValue": "Granada"},
	})

	first := h.get(t, "/documents?collection=cars&document=car-123", nil)
	first.Body.Close()
	if got := first.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("first X-Cache = %q, want MISS", got)
	}

	// The cache put is asynchronous; poll until the hit path takes over.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := h.get(t, "/documents?collection=cars&document=car-123", nil)
		resp.Body.Close()
		if resp.Header.Get("X-Cache") == "HIT" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("second request never served from cache")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Once the entry is served from cache the upstream stays untouched.
	before := h.upstream.GetRequestCount()
	resp := h.get(t, "/documents?collection=cars&document=car-123", nil)
	resp.Body.Close()
	if after := h.upstream.GetRequestCount(); after != before {
		t.Errorf("upstream requests grew from %d to %d after cache hit", before, after)
	}
}

func TestInvalidate_PurgesEdgeCache(t *testing.T) {
	h := newTestHarness(t)
	h.upstream.SetDocument(testProject, "cars", "car-123", map[string]any{
		"model": map[string]any{"stringValue": "Granada"},
	})

	// Warm the cache.
	first := h.get(t, "/documents?collection=cars&document=car-123", nil)
	first.Body.Close()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := h.get(t, "/documents?collection=cars&document=car-123", nil)
		resp.Body.Close()
		if resp.Header.Get("X-Cache") == "HIT" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cache never warmed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp := h.post(t, "/cache/invalidate", testSecret,
		`{"collection": "cars", "documentId": "car-123", "action": "update"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invalidate status = %d", resp.StatusCode)
	}

	after := h.get(t, "/documents?collection=cars&document=car-123", nil)
	after.Body.Close()
	if got := after.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache after purge = %q, want MISS", got)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return data
}
