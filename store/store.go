package store

import (
	"context"

	"github.com/xraph/dropout/activity"
	"github.com/xraph/dropout/enrollment"
	"github.com/xraph/dropout/exclusion"
)

// Tx is one unit of work. Every read and write of a run goes through the
// same Tx so that a failure on any page discards the writes of all pages.
// Commit and Rollback may each be called once; Rollback after Commit
// returns dropout.ErrTxDone and is safe to ignore.
type Tx interface {
	enrollment.Store
	exclusion.Store
	activity.Store

	// Commit makes the unit of work durable.
	Commit(ctx context.Context) error

	// Rollback discards every write made through the Tx.
	Rollback(ctx context.Context) error
}

// Store is the aggregate persistence interface.
type Store interface {
	// Begin starts a unit of work.
	Begin(ctx context.Context) (Tx, error)

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
