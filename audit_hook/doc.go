// Package audithook is a dropout extension that bridges run lifecycle
// events to an audit trail backend.
//
// Every run and cron lifecycle hook emits a structured audit event through
// the [Recorder] interface. The extension assigns severity levels (info for
// normal runs, warning for dry runs, critical for failed runs) and metadata
// such as the cutoff, counters and elapsed time.
//
// This trail is about the job itself. Per-enrollment COURSE_DROPOUT
// activities are written by the activity package inside the run's
// transaction.
//
// # Usage
//
//	audithook.New(audithook.LogRecorder(logger))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionRunCompleted,
//	        audithook.ActionRunFailed,
//	    ),
//	)
package audithook
