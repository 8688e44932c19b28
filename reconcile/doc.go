// Package reconcile holds the dropout batch algorithm.
//
// For each page of eligible enrollments the [Processor]:
//
//  1. collects the (student, course) pairs and an enrollment id to student
//     id map;
//  2. resolves the exclusion set for those pairs;
//  3. keeps the enrollments whose pair is not excluded;
//  4. flips them to DROPOUT and records one activity each, using the map
//     captured before the update;
//  5. adds the page's counts to the run totals.
//
// Pages are processed strictly one after another on the caller's
// transaction. The processor never commits; that belongs to the unit of
// work around it.
package reconcile
