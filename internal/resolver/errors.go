package resolver

import (
	"fmt"
	"strings"
)

// CyclicDependencyError names every member of a dependency cycle.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

// UnsatisfiedDependencyError is returned when a dependency, or a requested
// formula when From is empty, is not in the known formula set.
type UnsatisfiedDependencyError struct {
	From    string
	Missing string
}

func (e *UnsatisfiedDependencyError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("no formula named %q", e.Missing)
	}
	return fmt.Sprintf("formula %q depends on unknown formula %q", e.From, e.Missing)
}
