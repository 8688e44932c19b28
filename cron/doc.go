// Package cron triggers dropout runs on a cron schedule inside one process.
//
// The [Scheduler] parses a standard 5-field expression or a descriptor such
// as "@daily" with robfig/cron, checks it on every tick, and calls the
// configured [RunFunc] when the schedule is due. Runs never overlap: a run
// executes on the tick goroutine, and fire times that pass while it is in
// progress are skipped rather than queued.
//
// The [ext.CronFired] extension hook fires before each triggered run with
// the run id the scheduler allocated.
//
// Running several scheduler processes against the same database is safe for
// correctness because every run is one transaction, but it wastes work.
// Deploy one scheduler per database.
package cron
