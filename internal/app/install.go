package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/specialistvlad/brewgridgo/internal/resolver"
)

// Request names the formulas to install and how to build them.
type Request struct {
	Names []string
	// Flags are option flags such as "--with-cassert". They apply to every
	// requested formula and must be declared by each of them.
	Flags []string
	Head  bool
}

// Outcome is the final state of one formula after a run.
type Outcome struct {
	Name   string
	Status node.Status
	Err    error
}

// Plan resolves req into a BuildPlan and checks that every formula in it
// has a source for this platform, so a run never starts building a plan it
// cannot finish.
func (a *App) Plan(ctx context.Context, req Request) (*resolver.BuildPlan, error) {
	ctx = a.context(ctx)
	logger := ctxlog.FromContext(ctx)

	options := make(map[string]formula.BuildOptions, len(req.Names))
	for _, name := range req.Names {
		f, ok := a.formulas[name]
		if !ok {
			return nil, &resolver.UnsatisfiedDependencyError{Missing: name}
		}
		opts, err := f.ResolveOptions(req.Flags, req.Head)
		if err != nil {
			return nil, err
		}
		if req.Head && f.Head == nil {
			return nil, fmt.Errorf("formula %s has no head source", name)
		}
		options[name] = opts
	}

	plan, err := resolver.New(a.formulas).Resolve(ctx, resolver.Request{Names: req.Names, Options: options})
	if err != nil {
		return nil, err
	}
	for _, f := range plan.Formulas() {
		if _, err := f.SelectSource(a.platform, plan.Options(f.Name).Head); err != nil {
			return nil, err
		}
	}
	logger.Info("Resolved build plan.", "formulas", plan.Names())
	return plan, nil
}

// Install resolves req and installs every formula of the plan. It returns
// the outcome of each formula in plan order along with the root cause of
// any failure.
func (a *App) Install(ctx context.Context, req Request) ([]Outcome, error) {
	ctx = a.context(ctx)
	logger := ctxlog.FromContext(ctx)
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	plan, err := a.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	sess, err := a.sessions.NewSession(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			logger.Error("Failed to close session cleanly.", "error", err)
		}
	}()

	exec, err := sess.GetExecutor()
	if err != nil {
		return nil, fmt.Errorf("failed to get executor: %w", err)
	}

	logger.Info("Starting install.", "formulas", plan.Len(), "workers", a.config.Workers)
	runErr := exec.Execute(ctx)

	var outcomes []Outcome
	store := sess.Store()
	for _, name := range plan.Names() {
		status, err := store.GetStatus(ctx, name)
		if err != nil {
			return nil, errors.Join(runErr, err)
		}
		nodeErr, _ := store.GetError(ctx, name)
		outcomes = append(outcomes, Outcome{Name: name, Status: status, Err: nodeErr})
	}
	if runErr != nil {
		return outcomes, runErr
	}
	logger.Info("Install finished.")
	return outcomes, nil
}
