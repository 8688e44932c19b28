// Package exclusion decides which students must not be dropped out of a
// course in the current page.
//
// A student is protected in course C when they have an exam IN_PROGRESS
// or a submission WAITING_REVIEW in C. The scope is the (student, course)
// pair: a student protected in course A is still dropped out of course B
// when nothing protects them there. Stores must therefore match on the
// tuple, never on the cross product of the page's student and course ids.
package exclusion
