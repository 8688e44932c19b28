package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/xraph/dropout/exclusion"
)

// InProgressExams returns the pairs with an exam IN_PROGRESS.
func (t *Tx) InProgressExams(ctx context.Context, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	return t.matchPairs(ctx, "exams", "IN_PROGRESS", pairs)
}

// WaitingReviewSubmissions returns the pairs with a submission
// WAITING_REVIEW.
func (t *Tx) WaitingReviewSubmissions(ctx context.Context, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	return t.matchPairs(ctx, "submissions", "WAITING_REVIEW", pairs)
}

func (t *Tx) matchPairs(ctx context.Context, table, status string, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	students, courses := exclusion.Split(pairs)

	var rows []pairRow
	err := t.tx.NewRaw(`
		SELECT DISTINCT r.student_id, r.course_id
		FROM ? AS r
		JOIN unnest(?::bigint[], ?::bigint[]) AS p(student_id, course_id)
		  ON r.student_id = p.student_id AND r.course_id = p.course_id
		WHERE r.status = ?`,
		bun.Ident(table), pgdialect.Array(students), pgdialect.Array(courses), status,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("dropout/bun: match %s: %w", table, txDone(err))
	}
	return fromPairRows(rows), nil
}
