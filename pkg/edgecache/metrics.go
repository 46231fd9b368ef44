package edgecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks edge cache hits by store backend.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_hits_total",
			Help: "Total number of edge cache hits",
		},
		[]string{"store"}, // "redis", "memory"
	)

	// CacheMisses tracks edge cache misses by store backend.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_misses_total",
			Help: "Total number of edge cache misses",
		},
		[]string{"store"},
	)

	// CacheWriteBytes tracks bytes written to the cache by store backend.
	CacheWriteBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_write_bytes_total",
			Help: "Total bytes written to the edge cache",
		},
		[]string{"store"},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_errors_total",
			Help: "Total number of edge cache operation errors",
		},
		[]string{"operation"}, // "get", "put", "purge"
	)

	// CachePurges tracks purge operations by scope.
	CachePurges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_purges_total",
			Help: "Total number of edge cache purge operations",
		},
		[]string{"scope"}, // "key", "all"
	)
)
