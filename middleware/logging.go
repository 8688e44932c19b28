package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/dropout"
)

// Logging returns middleware that logs run start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *dropout.Run, next Handler) error {
		logger.Info("run started",
			slog.String("job_name", r.Name),
			slog.String("run_id", r.ID.String()),
			slog.Int("batch_size", r.BatchSize),
			slog.String("policy", string(r.Policy)),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("run failed",
				slog.String("job_name", r.Name),
				slog.String("run_id", r.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("run finished",
				slog.String("job_name", r.Name),
				slog.String("run_id", r.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
