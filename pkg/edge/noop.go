package edge

import (
	"context"

	"github.com/rs/zerolog"
)

// Noop is the Provider used when edge credentials are absent. Purges become
// logged no-ops so a missing zone configuration degrades the accelerator
// instead of failing mutations.
type Noop struct {
	logger zerolog.Logger
}

// NewNoop creates a no-op provider.
func NewNoop(logger zerolog.Logger) *Noop {
	logger.Warn().Msg("Edge provider credentials absent, purges are no-ops")
	return &Noop{logger: logger}
}

func (n *Noop) Name() string       { return "noop" }
func (n *Noop) SupportsTags() bool { return false }

func (n *Noop) PurgeAll(context.Context) error {
	n.logger.Debug().Msg("Skipping edge purge (no provider configured)")
	return nil
}

func (n *Noop) PurgeTags(context.Context, []string) error {
	n.logger.Debug().Msg("Skipping edge tag purge (no provider configured)")
	return nil
}

func (n *Noop) Ping(context.Context) error { return nil }
