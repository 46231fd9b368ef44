package edgecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces edge entries so PurgeAll never touches unrelated
// keys in a shared Redis.
const keyPrefix = "edge:"

// RedisStore is a Store backed by Redis. Redis expires entries natively via
// the TTL set on write; Get still checks expiry lazily to cover clock skew
// between writer and reader.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: client}
}

// Get retrieves a cached response. Returns ErrCacheMiss when the key is
// absent or the entry is past its hard expiry.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues("redis").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = s.PurgeByKey(ctx, key)
		CacheMisses.WithLabelValues("redis").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Put stores a response with the entry's remaining TTL. Entries already at
// or past expiry are dropped silently.
func (s *RedisStore) Put(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.RemainingTTL(time.Now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheWriteBytes.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// PurgeByKey removes a single cached response.
func (s *RedisStore) PurgeByKey(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, keyPrefix+key).Err(); err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	CachePurges.WithLabelValues("key").Inc()
	return nil
}

// PurgeAll removes every edge entry. Keys are walked with SCAN so the
// operation stays incremental on large caches.
func (s *RedisStore) PurgeAll(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				CacheErrors.WithLabelValues("purge").Inc()
				return fmt.Errorf("redis del batch: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) > 0 {
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			CacheErrors.WithLabelValues("purge").Inc()
			return fmt.Errorf("redis del batch: %w", err)
		}
	}
	CachePurges.WithLabelValues("all").Inc()
	return nil
}

// Ping checks backend connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
