// Package edge talks to the edge provider's cache purge API. A full-zone
// purge is always correct; tag-scoped purge is an optimization only some
// provider plans support, so callers must check SupportsTags first.
package edge

import "context"

// Provider is the edge-provider boundary used by the invalidation
// dispatcher. All operations are idempotent.
type Provider interface {
	// PurgeAll expires every cached response in the zone.
	PurgeAll(ctx context.Context) error

	// PurgeTags expires responses carrying any of the given cache tags.
	// Only valid when SupportsTags reports true.
	PurgeTags(ctx context.Context, tags []string) error

	// SupportsTags reports whether the provider can purge by cache tag.
	SupportsTags() bool

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error

	// Name identifies the provider for status reporting.
	Name() string
}
