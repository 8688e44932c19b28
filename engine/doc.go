// Package engine wires the dropout subsystems together and exposes the
// application-level API: run the job once, or run it on a schedule.
//
// The engine sits above every subsystem package (cutoff, reconcile,
// unitofwork, ext, middleware, cron) and below the CLI. The root dropout
// package defines shared types and so cannot import those packages back.
//
// # Building an Engine
//
//	eng, err := engine.New(pgStore,
//	    engine.WithBatchSize(5000),
//	    engine.WithPolicy(dropout.PolicyCommit),
//	    engine.WithExtension(audithook.New(audithook.LogRecorder(logger))),
//	    engine.WithLogger(logger),
//	)
//
// # Running
//
//	summary, err := eng.Run(ctx)
//
//	// Or on a schedule.
//	sched, err := eng.Schedule("0 2 * * *")
//	sched.Start(ctx)
//
// # Options
//
//   - [WithConfig]: replace the whole dropout.Config
//   - [WithBatchSize], [WithPolicy], [WithPageRate], [WithRunTimeout], [WithName]
//   - [WithClock]: set the source of the run's "now"
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware to the run chain
//   - [WithTracerProvider], [WithMeterProvider]: set OpenTelemetry providers
package engine
