// Package cutoff derives the single timestamp a run compares enrollment
// deadlines against.
//
// The cutoff is the deadline of the most recently created enrollment, the
// one with the highest id. It is read once per run: every enrollment whose
// own deadline is at or before it is a candidate, whenever it was created.
package cutoff

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/enrollment"
)

// Resolver reads the cutoff from an enrollment store.
type Resolver struct {
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for the resolver.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver returns a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the cutoff. An empty enrollment table yields
// dropout.ErrNoCutoff; any other failure is a *dropout.RepositoryError.
func (r *Resolver) Resolve(ctx context.Context, src enrollment.Store) (time.Time, error) {
	deadline, err := src.LatestDeadline(ctx)
	if errors.Is(err, enrollment.ErrNoEnrollments) {
		return time.Time{}, dropout.ErrNoCutoff
	}
	if err != nil {
		return time.Time{}, dropout.NewRepositoryError("latest deadline", err)
	}
	if deadline.IsZero() {
		return time.Time{}, dropout.ErrNoCutoff
	}
	r.logger.Debug("cutoff resolved", slog.Time("cutoff", deadline))
	return deadline, nil
}
