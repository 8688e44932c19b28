package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/grove/drivers/sqlitedriver"
)

// Tx is a unit of work backed by a grove SQLite transaction. Queries built
// from it run inside the transaction.
type Tx struct {
	tx *sqlitedriver.SqliteTx
}

// Commit commits the transaction.
func (t *Tx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("dropout/sqlite: commit: %w", txDone(err))
	}
	return nil
}

// Rollback rolls the transaction back.
func (t *Tx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("dropout/sqlite: rollback: %w", txDone(err))
	}
	return nil
}
