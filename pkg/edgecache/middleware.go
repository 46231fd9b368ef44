package edgecache

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderamotors/edge-cache/pkg/policy"
)

// maxCacheableBody caps what a single cached response may hold. Larger
// bodies pass through uncached.
const maxCacheableBody = 4 << 20

// putTimeout bounds the asynchronous cache write after a miss.
const putTimeout = 5 * time.Second

// Middleware serves whole responses from the edge cache store. Requests are
// checked against the policy engine first; only cacheable GET responses are
// stored. Population happens after the response has been sent, so a slow
// cache write never delays the caller.
type Middleware struct {
	store  Store
	logger zerolog.Logger
}

// NewMiddleware creates the edge caching middleware.
func NewMiddleware(store Store, logger zerolog.Logger) *Middleware {
	return &Middleware{store: store, logger: logger}
}

// Wrap returns the caching handler around next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		pol := policy.Classify(r.URL.Path)
		if !pol.Cacheable() {
			next.ServeHTTP(w, r)
			return
		}

		key := CanonicalKey(r)
		entry, err := m.store.Get(r.Context(), key)
		if err != nil && err != ErrCacheMiss {
			m.logger.Warn().Err(err).Str("key", key).Msg("Edge cache get failed, serving uncached")
		}
		if entry != nil {
			m.serveHit(w, r, entry)
			return
		}

		rec := newRecorder(w)
		rec.Header().Set("X-Cache", "MISS")
		next.ServeHTTP(rec, r)

		if rec.cacheable() {
			m.storeAsync(key, rec.toEntry(pol.MaxAge))
		}
	})
}

// serveHit replays a cached response, honoring a conditional request
// against the stored ETag.
func (m *Middleware) serveHit(w http.ResponseWriter, r *http.Request, entry *Entry) {
	now := time.Now()
	for k, vs := range entry.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("X-Cache", "HIT")
	w.Header().Set("Age", strconv.FormatInt(entry.Age(now), 10))

	if etag := entry.Headers.Get("ETag"); etag != "" && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(entry.Status)
	if _, err := w.Write(entry.Body); err != nil {
		m.logger.Debug().Err(err).Msg("Failed to write cached response")
	}
}

// storeAsync populates the cache after the response is already on the wire.
func (m *Middleware) storeAsync(key string, entry *Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), putTimeout)
		defer cancel()
		if err := m.store.Put(ctx, key, entry); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("Edge cache put failed")
			return
		}
		m.logger.Debug().
			Str("key", key).
			Dur("ttl", entry.TTL).
			Int("bytes", len(entry.Body)).
			Msg("Cached response")
	}()
}

// recorder captures the response while streaming it to the client.
type recorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	overflow bool
}

func newRecorder(w http.ResponseWriter) *recorder {
	return &recorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.overflow {
		if r.body.Len()+len(p) > maxCacheableBody {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(p)
		}
	}
	return r.ResponseWriter.Write(p)
}

// cacheable reports whether the captured response may be stored. Responses
// carrying cookies are never shared.
func (r *recorder) cacheable() bool {
	if r.status != http.StatusOK || r.overflow {
		return false
	}
	if r.Header().Get("Set-Cookie") != "" {
		return false
	}
	return true
}

func (r *recorder) toEntry(ttl time.Duration) *Entry {
	headers := r.Header().Clone()
	headers.Del("X-Cache")
	return &Entry{
		Status:   r.status,
		Headers:  headers,
		Body:     append([]byte(nil), r.body.Bytes()...),
		StoredAt: time.Now(),
		TTL:      ttl,
	}
}
