package node

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/brewgridgo/internal/formula"
)

// Node is a single vertex of a run: one formula from the build plan with
// the options it is built with.
type Node struct {
	Formula *formula.Formula
	Options formula.BuildOptions

	deps       []*Node
	dependents []*Node

	// pending counts dependencies that have not completed yet.
	pending atomic.Int32
	done    chan struct{}
	once    sync.Once
}

// New creates a node for f.
func New(f *formula.Formula, opts formula.BuildOptions) *Node {
	return &Node{Formula: f, Options: opts, done: make(chan struct{})}
}

// ID returns the formula name, which is unique within a run.
func (n *Node) ID() string {
	return n.Formula.Name
}

func (n *Node) String() string {
	return fmt.Sprintf("formula.%s", n.Formula.Name)
}

// DependOn records that n needs dep.
func (n *Node) DependOn(dep *Node) {
	n.deps = append(n.deps, dep)
	dep.dependents = append(dep.dependents, n)
	n.pending.Add(1)
}

// Dependencies returns the nodes n depends on.
func (n *Node) Dependencies() []*Node {
	return append([]*Node(nil), n.deps...)
}

// Dependents returns the nodes depending on n.
func (n *Node) Dependents() []*Node {
	return append([]*Node(nil), n.dependents...)
}

// Pending returns the number of unfinished dependencies.
func (n *Node) Pending() int32 {
	return n.pending.Load()
}

// DecrementPending marks one dependency as finished and returns how many
// remain.
func (n *Node) DecrementPending() int32 {
	return n.pending.Add(-1)
}

// Finish closes the completion channel. It reports whether this call was
// the one that finished the node.
func (n *Node) Finish() bool {
	first := false
	n.once.Do(func() {
		close(n.done)
		first = true
	})
	return first
}

// Done is closed once the node has reached a terminal state.
func (n *Node) Done() <-chan struct{} {
	return n.done
}

// SkippedError is recorded for a node that never ran because a dependency
// failed.
type SkippedError struct {
	Upstream string
}

func (e *SkippedError) Error() string {
	return fmt.Sprintf("skipped due to upstream failure of '%s'", e.Upstream)
}
