package scheduler

import "github.com/specialistvlad/brewgridgo/internal/node"

// Scheduler streams ready nodes to the executor and tracks completion.
//
// The executor consumes ReadyNodes in a loop and reports every node it
// takes back through exactly one of Complete or Fail:
//
//	for n := range sch.ReadyNodes() {
//	    if err := build(n); err != nil {
//	        sch.Fail(n)
//	        continue
//	    }
//	    sch.Complete(n)
//	}
//
// The channel is closed once every node has reached a terminal state.
type Scheduler interface {
	// ReadyNodes returns the channel of nodes whose dependencies have all
	// completed. Each node is delivered at most once.
	ReadyNodes() <-chan *node.Node

	// Complete marks n as finished and releases dependents whose last
	// pending dependency was n.
	Complete(n *node.Node)

	// Fail marks n as finished without releasing its dependents. Every
	// transitive dependent is finished as well and returned, so the caller
	// can record why it was skipped.
	Fail(n *node.Node) []*node.Node
}
