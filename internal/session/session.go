// Package session defines the core interfaces for creating and managing an
// install run. It abstracts away how and where the run executes.
package session

import (
	"context"

	"github.com/specialistvlad/brewgridgo/internal/executor"
	"github.com/specialistvlad/brewgridgo/internal/nodestore"
	"github.com/specialistvlad/brewgridgo/internal/resolver"
)

// SessionFactory creates a Session for one build plan.
type SessionFactory interface {
	NewSession(ctx context.Context, plan *resolver.BuildPlan) (Session, error)
}

// Session represents a single run and manages its lifecycle.
type Session interface {
	GetExecutor() (executor.Executor, error)
	// Store exposes the per-formula state of the run for reporting.
	Store() nodestore.Store
	// Close releases any resources held by the session. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}
