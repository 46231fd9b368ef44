package edgecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// waitForEntry polls the store until the asynchronous put lands.
func waitForEntry(t *testing.T, store Store, key string) *Entry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entry, err := store.Get(context.Background(), key)
		if err == nil {
			return entry
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("entry for %s never appeared in store", key)
	return nil
}

func newTestMiddleware(t *testing.T) (*Middleware, Store) {
	t.Helper()
	store := NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return NewMiddleware(store, zerolog.Nop()), store
}

func TestMiddleware_MissThenHit(t *testing.T) {
	mw, store := newTestMiddleware(t)

	var upstreamCalls int64
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&upstreamCalls, 1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<h1>cars</h1>")
	}))

	req := httptest.NewRequest("GET", "/cars", nil)
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)

	if rec1.Header().Get("X-Cache") != "MISS" {
		t.Errorf("first request X-Cache = %q, want MISS", rec1.Header().Get("X-Cache"))
	}

	key := CanonicalKey(req)
	waitForEntry(t, store, key)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest("GET", "/cars", nil))

	if rec2.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second request X-Cache = %q, want HIT", rec2.Header().Get("X-Cache"))
	}
	if rec2.Header().Get("Age") == "" {
		t.Error("cache hit missing Age header")
	}
	body, _ := io.ReadAll(rec2.Body)
	if string(body) != "<h1>cars</h1>" {
		t.Errorf("cached body = %q", body)
	}
	if n := atomic.LoadInt64(&upstreamCalls); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestMiddleware_BypassPolicyNotCached(t *testing.T) {
	mw, store := newTestMiddleware(t)

	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "admin page")
	}))

	req := httptest.NewRequest("GET", "/admin/cars", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	time.Sleep(50 * time.Millisecond)
	if _, err := store.Get(context.Background(), CanonicalKey(req)); err != ErrCacheMiss {
		t.Error("bypass response was cached")
	}
}

func TestMiddleware_NonGetNotCached(t *testing.T) {
	mw, store := newTestMiddleware(t)

	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "created")
	}))

	req := httptest.NewRequest("POST", "/cars", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	time.Sleep(50 * time.Millisecond)
	if _, err := store.Get(context.Background(), CanonicalKey(req)); err != ErrCacheMiss {
		t.Error("POST response was cached")
	}
}

func TestMiddleware_ErrorResponseNotCached(t *testing.T) {
	mw, store := newTestMiddleware(t)

	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	req := httptest.NewRequest("GET", "/cars", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	time.Sleep(50 * time.Millisecond)
	if _, err := store.Get(context.Background(), CanonicalKey(req)); err != ErrCacheMiss {
		t.Error("500 response was cached")
	}
}

func TestMiddleware_SetCookieNotCached(t *testing.T) {
	mw, store := newTestMiddleware(t)

	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "session=abc")
		fmt.Fprint(w, "personal")
	}))

	req := httptest.NewRequest("GET", "/cars", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	time.Sleep(50 * time.Millisecond)
	if _, err := store.Get(context.Background(), CanonicalKey(req)); err != ErrCacheMiss {
		t.Error("response with Set-Cookie was cached")
	}
}

func TestMiddleware_HitHonorsConditionalRequest(t *testing.T) {
	mw, store := newTestMiddleware(t)

	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, "body")
	}))

	first := httptest.NewRequest("GET", "/cars", nil)
	handler.ServeHTTP(httptest.NewRecorder(), first)
	waitForEntry(t, store, CanonicalKey(first))

	second := httptest.NewRequest("GET", "/cars", nil)
	second.Header.Set("If-None-Match", `"v1"`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional hit status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("304 body = %q, want empty", rec.Body.String())
	}
}
