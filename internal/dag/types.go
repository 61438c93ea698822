package dag

import (
	"strings"
	"sync"
)

// Graph is a thread-safe directed graph. An edge from A to B means that B
// depends on A.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	order []string
}

// node is an internal vertex. deps and dependents are kept in the order the
// edges were added.
type node struct {
	id         string
	deps       []string
	dependents []string
	depSet     map[string]struct{}
}

// CycleError is returned when the graph contains a cycle. Path starts and
// ends with the same node, e.g. [a b a].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}
