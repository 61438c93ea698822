package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/specialistvlad/brewgridgo/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
//
// It keeps status, output and error in three sync.Maps. Status updates use
// compare-and-swap, so concurrent transitions of the same formula are
// validated against the state they replace.
type Store struct {
	states  sync.Map // Key: formula name, Value: node.Status
	outputs sync.Map // Key: formula name, Value: any
	errors  sync.Map // Key: formula name, Value: error
}

// New creates a new, empty in-memory store.
func New() nodestore.Store {
	return &Store{}
}

// Init registers name in the requested state.
func (s *Store) Init(ctx context.Context, name string) error {
	s.states.Store(name, node.StatusRequested)
	return nil
}

// SetStatus moves name to status, validating the transition.
func (s *Store) SetStatus(ctx context.Context, name string, status node.Status) error {
	for {
		current, _ := s.states.LoadOrStore(name, node.StatusRequested)
		from := current.(node.Status)
		if !from.CanTransitionTo(status) {
			return &node.TransitionError{Name: name, From: from, To: status}
		}
		if s.states.CompareAndSwap(name, from, status) {
			return nil
		}
	}
}

// GetStatus retrieves the status of name.
func (s *Store) GetStatus(ctx context.Context, name string) (node.Status, error) {
	status, ok := s.states.Load(name)
	if !ok {
		return node.StatusRequested, nil
	}
	return status.(node.Status), nil
}

// SetOutput records the output of name.
func (s *Store) SetOutput(ctx context.Context, name string, output any) error {
	s.outputs.Store(name, output)
	return nil
}

// GetOutput retrieves the recorded output of name.
func (s *Store) GetOutput(ctx context.Context, name string) (any, error) {
	output, ok := s.outputs.Load(name)
	if !ok {
		return nil, nil // If not found, the output is nil.
	}
	return output, nil
}

// SetError records the error of name.
func (s *Store) SetError(ctx context.Context, name string, nodeErr error) error {
	s.errors.Store(name, nodeErr)
	return nil
}

// GetError retrieves the recorded error of name.
func (s *Store) GetError(ctx context.Context, name string) (error, error) {
	err, ok := s.errors.Load(name)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}
