package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/dropout"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace. The unit of
// work has already rolled back by the time the panic reaches this layer.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *dropout.Run, next Handler) (retErr error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("run panicked",
					slog.String("job_name", r.Name),
					slog.String("run_id", r.ID.String()),
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in run %s: %v", r.ID, p)
			}
		}()
		return next(ctx)
	}
}
