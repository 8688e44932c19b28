// Package ext defines the extension system for dropout runs.
//
// Extensions are notified of lifecycle events and can react to them,
// for example by recording metrics or writing audit logs.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnRunCompleted(ctx context.Context, r *dropout.Run, s *dropout.Summary) error {
//	    log.Printf("run %s dropped out %d enrollments", r.ID, s.DroppedOut)
//	    return nil
//	}
//
// # Run Lifecycle Hooks
//
//   - [RunStarted]: cutoff resolved, eligible rows counted
//   - [PageProcessed]: one page was updated and audited
//   - [RunCompleted]: the run finished without error
//   - [RunFailed]: the run failed and was rolled back
//
// # Other Hooks
//
//   - [CronFired]: the scheduler triggered a run
//   - [Shutdown]: the process is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
