package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/dropout"
)

// timeLayout matches strftime('%Y-%m-%dT%H:%M:%fZ'), the form every
// timestamp comparison normalizes to.
const timeLayout = "2006-01-02T15:04:05.000Z"

// deadlineUTC normalizes deadline_at to timeLayout in UTC, whatever
// layout or offset the row was written with. Unparseable values yield
// NULL and never match.
const deadlineUTC = `strftime('%Y-%m-%dT%H:%M:%fZ', deadline_at)`

// cutoffUTC normalizes a bound cutoff the same way as deadlineUTC.
const cutoffUTC = `strftime('%Y-%m-%dT%H:%M:%fZ', ?)`

// maxParams bounds the placeholders of one statement, below SQLite's
// historical SQLITE_MAX_VARIABLE_NUMBER of 999.
const maxParams = 900

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// bindTime renders t for cutoffUTC without losing precision.
func bindTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("dropout/sqlite: unparseable time %q", s)
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey checks if a SQLite error is a unique constraint violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// txDone maps database/sql's finished-transaction error, which the grove
// driver wraps, to dropout.ErrTxDone.
func txDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return dropout.ErrTxDone
	}
	return err
}
