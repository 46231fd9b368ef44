package edgecache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore is an in-process Store for single-node deployments and tests.
// Entries expire natively through the underlying TTL cache; Get still checks
// the entry's own expiry lazily so behavior matches the Redis backend.
type MemoryStore struct {
	cache *ttlcache.Cache[string, *Entry]
}

// NewMemoryStore creates an in-memory store and starts its eviction loop.
func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New[string, *Entry](
		ttlcache.WithDisableTouchOnHit[string, *Entry](),
	)
	go cache.Start()
	return &MemoryStore{cache: cache}
}

// Get retrieves a cached response or ErrCacheMiss.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	item := s.cache.Get(key)
	if item == nil {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}
	entry := item.Value()
	if entry == nil || entry.IsExpired() {
		s.cache.Delete(key)
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}
	CacheHits.WithLabelValues("memory").Inc()
	return entry, nil
}

// Put stores a response for the entry's remaining TTL.
func (s *MemoryStore) Put(_ context.Context, key string, entry *Entry) error {
	if entry == nil {
		return nil
	}
	ttl := entry.RemainingTTL(time.Now())
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(key, entry, ttl)
	CacheWriteBytes.WithLabelValues("memory").Add(float64(len(entry.Body)))
	return nil
}

// PurgeByKey removes a single cached response.
func (s *MemoryStore) PurgeByKey(_ context.Context, key string) error {
	s.cache.Delete(key)
	CachePurges.WithLabelValues("key").Inc()
	return nil
}

// PurgeAll removes every cached response.
func (s *MemoryStore) PurgeAll(_ context.Context) error {
	s.cache.DeleteAll()
	CachePurges.WithLabelValues("all").Inc()
	return nil
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close stops the eviction loop.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
