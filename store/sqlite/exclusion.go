package sqlite

import (
	"context"
	"fmt"

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

// matchPairs joins table against a VALUES list of the page's pairs.
func (t *Tx) matchPairs(ctx context.Context, table, status string, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	var out []exclusion.Pair
	step := maxParams / 2

	for start := 0; start < len(pairs); start += step {
		chunk := pairs[start:min(start+step, len(pairs))]

		values := make([]byte, 0, len(chunk)*8)
		args := make([]any, 0, len(chunk)*2+1)
		for i, p := range chunk {
			if i > 0 {
				values = append(values, ", "...)
			}
			values = append(values, "(?, ?)"...)
			args = append(args, p.StudentID, p.CourseID)
		}
		args = append(args, status)

		var rows []pairRow
		err := t.tx.NewRaw(`
			WITH p(student_id, course_id) AS (VALUES `+string(values)+`)
			SELECT DISTINCT r.student_id, r.course_id
			FROM `+table+` r
			JOIN p ON r.student_id = p.student_id AND r.course_id = p.course_id
			WHERE r.status = ?`, args...,
		).Scan(ctx, &rows)
		if err != nil {
			return nil, fmt.Errorf("dropout/sqlite: match %s: %w", table, txDone(err))
		}
		for _, r := range rows {
			out = append(out, r.toPair())
		}
	}
	return out, nil
}
