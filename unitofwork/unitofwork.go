// Package unitofwork wraps a whole run in one transaction.
//
// The coordinator begins a store.Tx, hands it to the run, and releases it
// on every exit path: a returned error or a panic rolls back; success
// commits or rolls back depending on the configured dropout.Policy.
package unitofwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/store"
)

// Beginner starts a unit of work. store.Store satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (store.Tx, error)
}

// Func is the body of a unit of work.
type Func func(ctx context.Context, tx store.Tx) error

// Outcome reports how a unit of work ended.
type Outcome struct {
	Committed bool
}

// Coordinator runs functions inside a unit of work.
type Coordinator struct {
	beginner Beginner
	policy   dropout.Policy
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPolicy sets what happens after a successful run.
func WithPolicy(p dropout.Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithLogger sets the logger for the coordinator.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New returns a Coordinator. The default policy is dropout.PolicyCommit.
func New(b Beginner, opts ...Option) *Coordinator {
	c := &Coordinator{
		beginner: b,
		policy:   dropout.PolicyCommit,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs fn inside one transaction. The error of fn is returned as is;
// a failed rollback after it is logged and joined.
func (c *Coordinator) Do(ctx context.Context, fn Func) (out Outcome, err error) {
	tx, err := c.beginner.Begin(ctx)
	if err != nil {
		return out, dropout.NewRepositoryError("begin", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = c.rollback(ctx, tx, "panic")
			panic(r)
		}
	}()

	if runErr := fn(ctx, tx); runErr != nil {
		if rbErr := c.rollback(ctx, tx, "error"); rbErr != nil {
			return out, errors.Join(runErr, rbErr)
		}
		return out, runErr
	}

	if c.policy == dropout.PolicyRollback {
		if rbErr := c.rollback(ctx, tx, "policy"); rbErr != nil {
			return out, rbErr
		}
		return out, nil
	}

	if cErr := tx.Commit(ctx); cErr != nil {
		// A failed commit leaves nothing to roll back on most drivers;
		// try anyway so the connection is released.
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return out, dropout.NewRepositoryError("commit", cErr)
	}
	out.Committed = true
	return out, nil
}

func (c *Coordinator) rollback(ctx context.Context, tx store.Tx, reason string) error {
	// Roll back even if the run's context is cancelled.
	err := tx.Rollback(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, dropout.ErrTxDone) {
		c.logger.Error("rollback failed",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return dropout.NewRepositoryError("rollback", fmt.Errorf("after %s: %w", reason, err))
	}
	c.logger.Debug("unit of work rolled back", slog.String("reason", reason))
	return nil
}
