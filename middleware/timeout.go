package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/dropout"
)

// Timeout returns middleware that bounds a run with a deadline. A zero or
// negative d leaves the context untouched. When the deadline passes the
// next store call fails and the run rolls back.
func Timeout(d time.Duration, logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *dropout.Run, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		logger.Debug("run timeout set",
			slog.String("run_id", r.ID.String()),
			slog.Duration("timeout", d),
		)
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
