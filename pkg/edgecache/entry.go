// Package edgecache stores complete HTTP responses keyed by canonical
// request URL, with TTL expiry and explicit purge. Backends: Redis for
// shared deployments, an in-process TTL cache for single-node setups.
package edgecache

import (
	"net/http"
	"time"
)

// Entry is a cached HTTP response.
type Entry struct {
	// Status is the HTTP status code of the cached response.
	Status int `json:"status"`

	// Headers are the response headers as sent to the original caller.
	Headers http.Header `json:"headers"`

	// Body is the raw response body.
	Body []byte `json:"body"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// TTL is how long the entry stays fresh after StoredAt.
	TTL time.Duration `json:"ttl"`
}

// ExpiresAt returns the hard expiry instant (StoredAt + TTL).
func (e *Entry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL)
}

// IsExpiredAt reports whether the entry is past its hard expiry at the
// given instant. Expiry is checked lazily on read; there is no sweeper.
func (e *Entry) IsExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// IsExpired reports expiry against the wall clock.
func (e *Entry) IsExpired() bool {
	return e.IsExpiredAt(time.Now())
}

// Age returns the entry age in whole seconds, for the Age response header.
func (e *Entry) Age(now time.Time) int64 {
	age := int64(now.Sub(e.StoredAt).Seconds())
	if age < 0 {
		return 0
	}
	return age
}

// RemainingTTL returns the time until hard expiry, or 0 if already expired.
func (e *Entry) RemainingTTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt().Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
