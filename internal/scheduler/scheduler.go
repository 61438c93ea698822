package scheduler

import (
	"sync"

	"github.com/specialistvlad/brewgridgo/internal/node"
)

// DefaultScheduler is the in-process Scheduler.
type DefaultScheduler struct {
	ready chan *node.Node

	mu        sync.Mutex
	remaining int
}

// New creates a scheduler over nodes. Nodes without dependencies are ready
// immediately.
func New(nodes []*node.Node) *DefaultScheduler {
	s := &DefaultScheduler{
		// Every node is sent at most once, so sends never block.
		ready:     make(chan *node.Node, len(nodes)),
		remaining: len(nodes),
	}
	for _, n := range nodes {
		if n.Pending() == 0 {
			s.ready <- n
		}
	}
	if s.remaining == 0 {
		close(s.ready)
	}
	return s
}

// ReadyNodes implements the Scheduler interface.
func (s *DefaultScheduler) ReadyNodes() <-chan *node.Node {
	return s.ready
}

// Complete implements the Scheduler interface.
func (s *DefaultScheduler) Complete(n *node.Node) {
	if !n.Finish() {
		return
	}
	for _, d := range n.Dependents() {
		if d.DecrementPending() == 0 {
			s.ready <- d
		}
	}
	s.finished(1)
}

// Fail implements the Scheduler interface.
func (s *DefaultScheduler) Fail(n *node.Node) []*node.Node {
	if !n.Finish() {
		return nil
	}
	var skipped []*node.Node
	var skip func(*node.Node)
	skip = func(n *node.Node) {
		for _, d := range n.Dependents() {
			if d.Finish() {
				skipped = append(skipped, d)
				skip(d)
			}
		}
	}
	skip(n)
	s.finished(1 + len(skipped))
	return skipped
}

func (s *DefaultScheduler) finished(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining -= count
	if s.remaining == 0 {
		close(s.ready)
	}
}

var _ Scheduler = (*DefaultScheduler)(nil)
