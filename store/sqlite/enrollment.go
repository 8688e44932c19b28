package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/dropout/enrollment"
)

// LatestDeadline returns the deadline of the most recently inserted
// enrollment.
func (t *Tx) LatestDeadline(ctx context.Context) (time.Time, error) {
	var raw string
	err := t.tx.NewRaw(
		`SELECT COALESCE(`+deadlineUTC+`, '') FROM enrollments ORDER BY id DESC LIMIT 1`,
	).Scan(ctx, &raw)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, enrollment.ErrNoEnrollments
		}
		return time.Time{}, fmt.Errorf("dropout/sqlite: latest deadline: %w", txDone(err))
	}
	if raw == "" {
		return time.Time{}, fmt.Errorf("dropout/sqlite: latest deadline: unparseable deadline_at")
	}
	return parseTime(raw)
}

// CountEligible counts enrollments due by cutoff that are not DROPOUT yet.
func (t *Tx) CountEligible(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := t.tx.NewRaw(`
		SELECT COUNT(*) FROM enrollments
		WHERE `+deadlineUTC+` <= `+cutoffUTC+` AND status <> 'DROPOUT'`,
		bindTime(cutoff),
	).Scan(ctx, &n)
	if err != nil {
		return 0, fmt.Errorf("dropout/sqlite: count eligible: %w", txDone(err))
	}
	return n, nil
}

// PageEligible returns the next keyset page of eligible enrollments.
func (t *Tx) PageEligible(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]enrollment.Ref, error) {
	var rows []refRow
	err := t.tx.NewRaw(`
		SELECT id, student_id, course_id FROM enrollments
		WHERE `+deadlineUTC+` <= `+cutoffUTC+` AND status <> 'DROPOUT' AND id > ?
		ORDER BY id ASC
		LIMIT ?`,
		bindTime(cutoff), afterID, limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("dropout/sqlite: page eligible: %w", txDone(err))
	}

	refs := make([]enrollment.Ref, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, r.toRef())
	}
	return refs, nil
}

// BulkSetDropout moves the given enrollments to DROPOUT. Large id lists
// are split into several statements within the same transaction.
func (t *Tx) BulkSetDropout(ctx context.Context, ids []int64, now time.Time) (int64, error) {
	var total int64
	stamp := formatTime(now)

	for start := 0; start < len(ids); start += maxParams {
		end := min(start+maxParams, len(ids))
		chunk := ids[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, stamp)
		for _, id := range chunk {
			args = append(args, id)
		}

		res, err := t.tx.NewRaw(`
			UPDATE enrollments SET status = 'DROPOUT', updated_at = ?
			WHERE status <> 'DROPOUT' AND id IN (`+placeholders(len(chunk))+`)`,
			args...,
		).Exec(ctx)
		if err != nil {
			return total, fmt.Errorf("dropout/sqlite: bulk set dropout: %w", txDone(err))
		}
		n, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
		total += n
	}
	return total, nil
}
