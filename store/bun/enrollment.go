package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/dropout/enrollment"
)

// LatestDeadline returns the deadline of the most recently inserted
// enrollment.
func (t *Tx) LatestDeadline(ctx context.Context) (time.Time, error) {
	var deadline time.Time
	err := t.tx.NewSelect().Model((*enrollmentModel)(nil)).
		Column("deadline_at").
		OrderExpr("id DESC").
		Limit(1).
		Scan(ctx, &deadline)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, enrollment.ErrNoEnrollments
		}
		return time.Time{}, fmt.Errorf("dropout/bun: latest deadline: %w", txDone(err))
	}
	return deadline.UTC(), nil
}

// CountEligible counts enrollments due by cutoff that are not DROPOUT yet.
func (t *Tx) CountEligible(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := t.eligible(cutoff).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("dropout/bun: count eligible: %w", txDone(err))
	}
	return int64(n), nil
}

// PageEligible returns the next keyset page of eligible enrollments.
func (t *Tx) PageEligible(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]enrollment.Ref, error) {
	var models []enrollmentModel
	err := t.eligible(cutoff).Model(&models).
		Column("id", "student_id", "course_id").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("dropout/bun: page eligible: %w", txDone(err))
	}

	refs := make([]enrollment.Ref, len(models))
	for i := range models {
		refs[i] = models[i].ref()
	}
	return refs, nil
}

// BulkSetDropout moves the given enrollments to DROPOUT in one statement.
func (t *Tx) BulkSetDropout(ctx context.Context, ids []int64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := t.tx.NewUpdate().Model((*enrollmentModel)(nil)).
		Set("status = ?", string(enrollment.StatusDropout)).
		Set("updated_at = ?", now.UTC()).
		Where("id IN (?)", bun.In(ids)).
		Where("status <> ?", string(enrollment.StatusDropout)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("dropout/bun: bulk set dropout: %w", txDone(err))
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return rows, nil
}

func (t *Tx) eligible(cutoff time.Time) *bun.SelectQuery {
	return t.tx.NewSelect().Model((*enrollmentModel)(nil)).
		Where("deadline_at <= ?", cutoff).
		Where("status <> ?", string(enrollment.StatusDropout))
}
