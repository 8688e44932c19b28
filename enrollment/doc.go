// Package enrollment defines the enrollment model, its closed status
// enumeration and the persistence contract the dropout run reads and
// writes through.
//
// # Eligibility
//
// An enrollment is eligible when its DeadlineAt is at or before the run's
// cutoff and its Status is not already [StatusDropout]. DROPOUT is terminal
// for the job: a second run over unchanged data transitions nothing.
//
// # Paging
//
// [Pager] walks eligible enrollments with keyset pagination on the
// ascending ID. Because the cursor only ever moves forward, rows flipped to
// DROPOUT by an earlier page can neither reappear nor shift later pages,
// which offset paging over a shrinking result set would do.
package enrollment
