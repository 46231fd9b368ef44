package invalidate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/calderamotors/edge-cache/pkg/edge"
	"github.com/calderamotors/edge-cache/pkg/edgecache"
	"github.com/calderamotors/edge-cache/pkg/tags"
)

var invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "invalidations_total",
	Help: "Total invalidation dispatches by outcome",
}, []string{"outcome"}) // "completed", "partially_failed"

// dispatchTimeout bounds the whole fan-out; a hung sub-call degrades to a
// partial failure instead of blocking the admin mutation.
const dispatchTimeout = 15 * time.Second

// Result reports the terminal state of one dispatch and the per-leg errors
// behind a partial failure. Warnings are caller-presentable.
type Result struct {
	State    State
	Warnings []string

	PurgeErr      error
	RevalidateErr error
}

// Dispatcher fans an invalidation event out to the edge cache store, the
// edge provider, and the origin revalidator. Dispatch is idempotent:
// purge-all and tag revalidation can be repeated freely.
type Dispatcher struct {
	store       edgecache.Store
	provider    edge.Provider
	revalidator Revalidator
	logger      zerolog.Logger
}

// New creates a dispatcher.
func New(store edgecache.Store, provider edge.Provider, revalidator Revalidator, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		provider:    provider,
		revalidator: revalidator,
		logger:      logger,
	}
}

// Dispatch runs the fan-out for an already-authorized event. The purge and
// revalidation legs run concurrently and are unordered relative to each
// other; both must be attempted before the event is terminal.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) Result {
	mutationTags := tags.ForMutation(event.Collection, event.DocumentID)

	d.logger.Info().
		Str("state", string(StateDispatching)).
		Str("collection", event.Collection).
		Str("document_id", event.DocumentID).
		Str("action", string(event.Action)).
		Strs("tags", tags.Strings(mutationTags)).
		Msg("Dispatching invalidation")

	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	result := Result{}
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		result.PurgeErr = d.purgeEdge(ctx, mutationTags)
	}()
	go func() {
		defer wg.Done()
		result.RevalidateErr = d.revalidator.Revalidate(ctx, tags.Strings(mutationTags))
	}()
	wg.Wait()

	if result.PurgeErr != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("edge purge failed: %v", result.PurgeErr))
	}
	if result.RevalidateErr != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("origin revalidation failed: %v", result.RevalidateErr))
	}

	if len(result.Warnings) > 0 {
		result.State = StatePartiallyFailed
		invalidationsTotal.WithLabelValues(string(StatePartiallyFailed)).Inc()
		d.logger.Error().
			Str("state", string(StatePartiallyFailed)).
			Str("collection", event.Collection).
			Str("document_id", event.DocumentID).
			Strs("warnings", result.Warnings).
			Msg("Invalidation partially failed")
		return result
	}

	result.State = StateCompleted
	invalidationsTotal.WithLabelValues(string(StateCompleted)).Inc()
	d.logger.Info().
		Str("state", string(StateCompleted)).
		Str("collection", event.Collection).
		Str("document_id", event.DocumentID).
		Msg("Invalidation completed")
	return result
}

// purgeEdge clears the application-level store and the provider zone.
// The store holds whole responses without a tag index, so it always takes
// the full purge; the provider gets a tag-scoped purge when its plan
// supports one, otherwise the always-correct full-zone purge.
func (d *Dispatcher) purgeEdge(ctx context.Context, mutationTags []tags.Tag) error {
	if err := d.store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("store purge: %w", err)
	}

	if d.provider.SupportsTags() {
		if err := d.provider.PurgeTags(ctx, tags.Strings(mutationTags)); err != nil {
			return fmt.Errorf("provider tag purge: %w", err)
		}
		return nil
	}
	if err := d.provider.PurgeAll(ctx); err != nil {
		return fmt.Errorf("provider purge: %w", err)
	}
	return nil
}
