package edgecache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found or is expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a thread-safe response cache. Get checks TTL expiry lazily and
// reports expired entries as misses. PurgeAll is the universal fallback for
// backends without selective purge.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, entry *Entry) error
	PurgeByKey(ctx context.Context, key string) error
	PurgeAll(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
