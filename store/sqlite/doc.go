// Package sqlite implements store.Store using the grove ORM with the
// SQLite driver. Suitable for embedded deployments, CLI tools, local
// development and tests that want real SQL semantics.
//
// Either let the store own the handle:
//
//	store, _ := sqlite.Open(ctx, "file:school.db")
//	defer store.Close()
//	store.Migrate(ctx)
//
// or pass a *grove.DB to New, in which case the caller owns its lifecycle.
// Open adds _time_format=sqlite to the DSN; a handle passed to New should
// carry it too, or bound time.Time deadlines will not compare.
//
// Timestamps are TEXT. Deadline comparisons normalize both sides with
// strftime, so rows written in any layout SQLite understands, with any
// offset, compare as instants.
package sqlite
