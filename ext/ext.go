package ext

import (
	"context"
	"time"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/id"
	"github.com/xraph/dropout/reconcile"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// RunStarted is called after the cutoff is resolved and before the first page.
type RunStarted interface {
	OnRunStarted(ctx context.Context, r *dropout.Run, cutoff time.Time, eligible int64) error
}

// PageProcessed is called after each page is updated and audited.
// The page is not yet committed.
type PageProcessed interface {
	OnPageProcessed(ctx context.Context, r *dropout.Run, page reconcile.PageResult) error
}

// RunCompleted is called after the unit of work has been released
// without error, whether it was committed or rolled back by policy.
type RunCompleted interface {
	OnRunCompleted(ctx context.Context, r *dropout.Run, s *dropout.Summary) error
}

// RunFailed is called when a run fails and has been rolled back.
type RunFailed interface {
	OnRunFailed(ctx context.Context, r *dropout.Run, err error) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// CronFired is called when the scheduler triggers a run.
type CronFired interface {
	OnCronFired(ctx context.Context, schedule string, runID id.RunID) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
