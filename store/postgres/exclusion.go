package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

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

// matchPairs joins table against the page's (student, course) pairs. The
// table name is one of two constants above, never user input.
func (t *Tx) matchPairs(ctx context.Context, table, status string, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	students, courses := exclusion.Split(pairs)

	rows, err := t.tx.Query(ctx, `
		SELECT DISTINCT r.student_id, r.course_id
		FROM `+table+` r
		JOIN unnest($1::bigint[], $2::bigint[]) AS p(student_id, course_id)
		  ON r.student_id = p.student_id AND r.course_id = p.course_id
		WHERE r.status = $3`,
		students, courses, status,
	)
	if err != nil {
		return nil, fmt.Errorf("dropout/postgres: match %s: %w", table, txDone(err))
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[exclusion.Pair])
	if err != nil {
		return nil, fmt.Errorf("dropout/postgres: scan %s: %w", table, err)
	}
	return out, nil
}
