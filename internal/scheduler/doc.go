// Package scheduler decides which formulas of a run may be built next. A
// formula becomes ready once every one of its dependencies has completed;
// a failed formula takes all of its transitive dependents with it.
package scheduler
