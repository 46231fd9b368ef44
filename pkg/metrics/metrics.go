// Package metrics provides the centralized Prometheus registry reference for
// the edge cache service. All metrics are defined in their respective packages
// (docstore, edgecache, edge, invalidate, server) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Document Store Metrics (pkg/docstore):
//   - docstore_fetches_total{collection, status} (Counter): Fetches by collection and HTTP status
//   - docstore_fetch_duration_seconds{collection} (Histogram): Fetch duration by collection
//   - docstore_errors_total{class} (Counter): Errors by class (client, server, network)
//   - docstore_retries_total{class} (Counter): Retry attempts by error class
//   - docstore_retry_exhausted_total{class} (Counter): Fetches that exhausted max retries
//
// Edge Cache Metrics (pkg/edgecache):
//   - edge_cache_hits_total{store} (Counter): Cache hits by store backend
//   - edge_cache_misses_total{store} (Counter): Cache misses by store backend
//   - edge_cache_write_bytes_total{store} (Counter): Bytes written into the cache
//   - edge_cache_errors_total{operation} (Counter): Cache operation errors
//   - edge_cache_purges_total{scope} (Counter): Purges by scope (key, all)
//
// Edge Provider Metrics (pkg/edge):
//   - edge_provider_purges_total{mode, outcome} (Counter): Zone purges by mode (all, tags) and outcome
//
// Invalidation Metrics (pkg/invalidate):
//   - invalidations_total{outcome} (Counter): Dispatches by outcome (completed, partially_failed)
//
// HTTP Metrics (internal/server):
//   - http_requests_total{route, method, status} (Counter): Requests by route and status
//   - http_request_duration_seconds{route} (Histogram): Request duration by route
//
// Example Prometheus Queries:
//
//   # Edge Cache Hit Rate
//   sum(rate(edge_cache_hits_total[5m])) /
//   (sum(rate(edge_cache_hits_total[5m])) + sum(rate(edge_cache_misses_total[5m])))
//
//   # Invalidation Failure Rate
//   rate(invalidations_total{outcome="partially_failed"}[15m])
//
//   # Document Store Error Rate
//   rate(docstore_errors_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(docstore_fetch_duration_seconds_bucket[5m]))
