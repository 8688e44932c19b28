package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/dropout/enrollment"
)

// LatestDeadline returns the deadline of the most recently inserted
// enrollment.
func (t *Tx) LatestDeadline(ctx context.Context) (time.Time, error) {
	var deadline time.Time
	err := t.tx.QueryRow(ctx,
		`SELECT deadline_at FROM enrollments ORDER BY id DESC LIMIT 1`,
	).Scan(&deadline)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, enrollment.ErrNoEnrollments
		}
		return time.Time{}, fmt.Errorf("dropout/postgres: latest deadline: %w", txDone(err))
	}
	return deadline.UTC(), nil
}

// CountEligible counts enrollments due by cutoff that are not DROPOUT yet.
func (t *Tx) CountEligible(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM enrollments
		WHERE deadline_at <= $1 AND status <> 'DROPOUT'`,
		cutoff,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("dropout/postgres: count eligible: %w", txDone(err))
	}
	return n, nil
}

// PageEligible returns the next keyset page of eligible enrollments.
func (t *Tx) PageEligible(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]enrollment.Ref, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, student_id, course_id FROM enrollments
		WHERE deadline_at <= $1 AND status <> 'DROPOUT' AND id > $2
		ORDER BY id ASC
		LIMIT $3`,
		cutoff, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("dropout/postgres: page eligible: %w", txDone(err))
	}

	refs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[enrollment.Ref])
	if err != nil {
		return nil, fmt.Errorf("dropout/postgres: scan eligible: %w", err)
	}
	return refs, nil
}

// BulkSetDropout moves the given enrollments to DROPOUT in one statement.
func (t *Tx) BulkSetDropout(ctx context.Context, ids []int64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE enrollments SET status = 'DROPOUT', updated_at = $2
		WHERE id = ANY($1) AND status <> 'DROPOUT'`,
		ids, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("dropout/postgres: bulk set dropout: %w", txDone(err))
	}
	return tag.RowsAffected(), nil
}
