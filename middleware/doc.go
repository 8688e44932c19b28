// Package middleware provides composable middleware around a dropout run.
//
// A [Middleware] is a function that wraps the run handler. Middleware are
// composed into a chain using [Chain]; the first middleware in the slice is
// the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs run id, policy, duration and outcome
//   - [Recover]: catches panics and converts them to errors
//   - [Timeout]: cancels the run context after a fixed duration
//   - [Tracing]: wraps the run in an OpenTelemetry span
//   - [Metrics]: records run duration and outcome counters
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
