package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Tx is a unit of work backed by a bun.Tx.
type Tx struct {
	tx bun.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("dropout/bun: commit: %w", txDone(err))
	}
	return nil
}

// Rollback rolls the transaction back.
func (t *Tx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("dropout/bun: rollback: %w", txDone(err))
	}
	return nil
}
