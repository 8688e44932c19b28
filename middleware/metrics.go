package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/dropout"
)

// meterName is the instrumentation scope name for dropout metrics.
const meterName = "github.com/xraph/dropout"

// Metrics returns middleware that records per-run metrics using the global
// OTel MeterProvider. If no MeterProvider is configured, noop instruments
// are used.
//
// Instruments:
//   - dropout.run.duration (Float64Histogram): run time in seconds
//   - dropout.run.executions (Int64Counter): total runs
//
// Both carry job_name, policy and status, where status is one of
// "ok", "error" or "canceled".
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// The OTel API returns noop instruments on error.
	duration, _ := meter.Float64Histogram(
		"dropout.run.duration",
		metric.WithDescription("Duration of dropout runs in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"dropout.run.executions",
		metric.WithDescription("Total number of dropout runs"),
		metric.WithUnit("{run}"),
	)

	return func(ctx context.Context, r *dropout.Run, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := outcome(err)
		attrs := metric.WithAttributes(
			attribute.String("job_name", r.Name),
			attribute.String("policy", string(r.Policy)),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}

// outcome classifies a finished run. Runs stopped by a timeout or by the
// scheduler shutting down report "canceled" rather than "error".
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
