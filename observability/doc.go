// Package observability provides a Prometheus metrics extension for dropout
// runs. The MetricsExtension implements lifecycle hooks to record counters
// and gauges for runs, pages, dropped-out and excluded enrollments, and
// cron fires.
//
// For per-run tracing and OTel metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
