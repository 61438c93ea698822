// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/specialistvlad/brewgridgo/internal/build"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/executor"
	"github.com/specialistvlad/brewgridgo/internal/fetch"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/hooks"
	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/specialistvlad/brewgridgo/internal/nodestore"
	"github.com/specialistvlad/brewgridgo/internal/receipt"
	"github.com/specialistvlad/brewgridgo/internal/resolver"
	"github.com/specialistvlad/brewgridgo/internal/scheduler"
)

// Fetcher produces a verified local artifact for a source.
type Fetcher interface {
	Fetch(ctx context.Context, f *formula.Formula, src formula.Source) (*fetch.Artifact, error)
}

// Builder builds and installs one formula.
type Builder interface {
	Build(ctx context.Context, job build.Job) (*build.Result, error)
}

// PostInstaller runs the post-install hook of an installed formula.
type PostInstaller interface {
	Run(ctx context.Context, t hooks.Target) error
}

// Receipts returns the receipt of the currently linked install of a formula.
type Receipts interface {
	Current(name string) (*receipt.Receipt, error)
}

// Config wires the collaborators of an Executor.
type Config struct {
	Plan          *resolver.BuildPlan
	Store         nodestore.Store
	Fetcher       Fetcher
	Builder       Builder
	PostInstaller PostInstaller
	Receipts      Receipts
	Platform      formula.Platform
	// Workers bounds concurrent fetches and builds. Zero means runtime.NumCPU().
	Workers int
	// Force rebuilds formulas whose receipt matches the plan.
	Force bool
}

// Executor implements the executor.Executor interface for local execution.
type Executor struct {
	cfg   Config
	nodes []*node.Node
	byID  map[string]*node.Node

	mu        sync.Mutex
	artifacts map[string]*fetch.Artifact
}

// New creates a new local executor for cfg.Plan.
func New(cfg Config) *Executor {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	e := &Executor{
		cfg:       cfg,
		byID:      make(map[string]*node.Node),
		artifacts: make(map[string]*fetch.Artifact),
	}
	for _, f := range cfg.Plan.Formulas() {
		n := node.New(f, cfg.Plan.Options(f.Name))
		e.nodes = append(e.nodes, n)
		e.byID[f.Name] = n
	}
	for _, edge := range cfg.Plan.Edges() {
		e.byID[edge.From].DependOn(e.byID[edge.To])
	}
	return e
}

// Execute runs the plan and returns the root causes of any failure. Formulas
// that were skipped because of another failure are not reported.
func (e *Executor) Execute(ctx context.Context) error {
	ctx, logger := ctxlog.With(ctx, "run_size", len(e.nodes))

	for _, n := range e.nodes {
		if err := e.cfg.Store.Init(ctx, n.ID()); err != nil {
			return err
		}
		if err := e.cfg.Store.SetStatus(ctx, n.ID(), node.StatusResolved); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.markUpToDate(runCtx)

	if err := e.prefetch(runCtx); err != nil {
		logger.Error("Fetching sources failed, nothing will be built.", "error", err)
		cancel()
	}

	sch := scheduler.New(e.nodes)
	var wg sync.WaitGroup
	logger.Debug("Starting worker pool.", "workers", e.cfg.Workers)
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(runCtx, sch, cancel, workerID)
		}(i)
	}
	wg.Wait()
	logger.Debug("All formulas reached a final state.")

	return e.rootCause(ctx)
}

// rootCause aggregates the failures of the run in plan order.
func (e *Executor) rootCause(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var failed []string
	var cause error
	for _, n := range e.nodes {
		status, err := e.cfg.Store.GetStatus(ctx, n.ID())
		if err != nil {
			return err
		}
		if !status.Failed() {
			continue
		}
		nodeErr, _ := e.cfg.Store.GetError(ctx, n.ID())
		logger.Error("Formula failed.", "formula", n.ID(), "status", status, "error", nodeErr)
		if nodeErr == nil || errors.Is(nodeErr, context.Canceled) {
			continue
		}
		failed = append(failed, n.ID())
		if cause == nil {
			cause = nodeErr
		}
	}
	if cause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), cause)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Nodes returns the nodes of the run in plan order.
func (e *Executor) Nodes() []*node.Node {
	return append([]*node.Node(nil), e.nodes...)
}

func (e *Executor) artifact(name string) *fetch.Artifact {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.artifacts[name]
}

// depVersions returns the keg version every active dependency of n is
// installed at once the run completes.
func (e *Executor) depVersions(n *node.Node) map[string]string {
	out := make(map[string]string)
	for _, d := range n.Dependencies() {
		out[d.ID()] = layout.KegVersion(d.Formula, d.Options)
	}
	return out
}

var _ executor.Executor = (*Executor)(nil)
