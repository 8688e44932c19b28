package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/dropout"
)

// tracerName is the instrumentation scope name for dropout tracing.
const tracerName = "github.com/xraph/dropout"

// Tracing returns middleware that wraps a run in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through.
//
// The span carries the run id, job name, batch size and policy, and gets
// dropout.run.outcome once the run returns. Any error sets codes.Error.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, r *dropout.Run, next Handler) error {
		ctx, span := tracer.Start(ctx, "dropout.run",
			trace.WithAttributes(
				attribute.String("dropout.run.id", r.ID.String()),
				attribute.String("dropout.job.name", r.Name),
				attribute.Int("dropout.batch_size", r.BatchSize),
				attribute.String("dropout.policy", string(r.Policy)),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		span.SetAttributes(attribute.String("dropout.run.outcome", outcome(err)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
