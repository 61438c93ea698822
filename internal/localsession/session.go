// Package localsession provides a concrete implementation of the session.Session
// and session.SessionFactory interfaces for local, in-process execution.
package localsession

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/executor"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/inmemorystore"
	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/specialistvlad/brewgridgo/internal/localexecutor"
	"github.com/specialistvlad/brewgridgo/internal/nodestore"
	"github.com/specialistvlad/brewgridgo/internal/resolver"
	"github.com/specialistvlad/brewgridgo/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs. Its
// fields are shared by every session it creates.
type SessionFactory struct {
	Fetcher       localexecutor.Fetcher
	Builder       localexecutor.Builder
	PostInstaller localexecutor.PostInstaller
	Receipts      localexecutor.Receipts
	Layout        layout.Layout
	Platform      formula.Platform
	Workers       int
	Force         bool
}

// NewSession creates and wires a new local session.
func (f *SessionFactory) NewSession(ctx context.Context, plan *resolver.BuildPlan) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Creating local session.", "formulas", plan.Names())

	store := inmemorystore.New()
	exec := localexecutor.New(localexecutor.Config{
		Plan:          plan,
		Store:         store,
		Fetcher:       f.Fetcher,
		Builder:       f.Builder,
		PostInstaller: f.PostInstaller,
		Receipts:      f.Receipts,
		Platform:      f.Platform,
		Workers:       f.Workers,
		Force:         f.Force,
	})
	return &Session{executor: exec, store: store, staging: f.Layout.Staging()}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	executor executor.Executor
	store    nodestore.Store
	staging  string
}

// GetExecutor returns the executor that was created and wired up by the factory.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.executor, nil
}

// Store returns the state of the run.
func (s *Session) Store() nodestore.Store {
	return s.store
}

// Close removes the staging root once no build is using it. A staging root
// that still holds directories of other runs is left alone.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if s.staging == "" {
		return nil
	}
	err := os.Remove(s.staging)
	switch {
	case err == nil:
		logger.Debug("Removed staging root.", "path", s.staging)
	case errors.Is(err, fs.ErrNotExist):
	default:
		logger.Debug("Staging root still in use.", "path", s.staging, "error", err)
	}
	return nil
}

var _ session.SessionFactory = (*SessionFactory)(nil)
