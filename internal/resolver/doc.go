// Package resolver turns a set of requested formulas into a BuildPlan: the
// deterministic, dependency-first installation order restricted to the
// active dependency phases.
package resolver
