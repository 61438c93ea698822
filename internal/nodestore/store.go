// Package nodestore defines the interface for storing and retrieving the
// mutable state of formulas during a run.
//
// The store keeps what changes while a run executes (status, receipt,
// error) apart from the immutable build plan. It is created once per run,
// seeded with every formula of the plan and discarded afterwards.
//
// During execution:
//   - the executor moves formulas through their states and records the
//     receipt of each install or the error that stopped it
//   - the application reads the final states to report the outcome
//
// Status changes follow node.Status.CanTransitionTo; an illegal change is
// rejected with a *node.TransitionError.
package nodestore

import (
	"context"

	"github.com/specialistvlad/brewgridgo/internal/node"
)

// Store manages the mutable state of formulas during a run. Implementations
// must be safe for concurrent use.
type Store interface {
	// Init registers name in the StatusRequested state.
	Init(ctx context.Context, name string) error

	// SetStatus moves name to status if the transition is legal.
	SetStatus(ctx context.Context, name string, status node.Status) error

	// GetStatus returns the current status of name. Unknown names report
	// StatusRequested.
	GetStatus(ctx context.Context, name string) (node.Status, error)

	// SetOutput records the result of a successful install, usually its
	// receipt.
	SetOutput(ctx context.Context, name string, output any) error

	// GetOutput returns the recorded output, or nil.
	GetOutput(ctx context.Context, name string) (any, error)

	// SetError records why name failed or was skipped.
	SetError(ctx context.Context, name string, nodeErr error) error

	// GetError returns the recorded error, or nil.
	GetError(ctx context.Context, name string) (error, error)
}
