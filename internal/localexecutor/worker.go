package localexecutor

import (
	"context"

	"github.com/specialistvlad/brewgridgo/internal/build"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/hooks"
	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/specialistvlad/brewgridgo/internal/scheduler"
)

// worker is the processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, sch scheduler.Scheduler, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range sch.ReadyNodes() {
		nodeCtx, workerLogger := ctxlog.With(ctx, "workerID", workerID, "formula", n.ID())

		status, err := e.cfg.Store.GetStatus(nodeCtx, n.ID())
		if err != nil {
			workerLogger.Error("Failed to read formula status.", "error", err)
		}
		switch {
		case status == node.StatusUpToDate:
			workerLogger.Info("Formula is up to date.")
			sch.Complete(n)
			continue
		case status.Failed():
			e.skipDependents(nodeCtx, sch, n)
			continue
		}

		if ctx.Err() != nil {
			e.skip(nodeCtx, n, ctx.Err())
			e.skipDependents(nodeCtx, sch, n)
			continue
		}

		if err := e.install(nodeCtx, n); err != nil {
			workerLogger.Error("Formula failed to install.", "error", err)
			cancel()
			e.skipDependents(nodeCtx, sch, n)
			continue
		}
		sch.Complete(n)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// install builds n, promotes it and runs its post-install hook. A failing
// post-install is recorded but leaves the formula usable by its dependents.
func (e *Executor) install(ctx context.Context, n *node.Node) error {
	logger := ctxlog.FromContext(ctx)
	store := e.cfg.Store

	job := build.Job{
		Formula:  n.Formula,
		Options:  n.Options,
		Artifact: e.artifact(n.ID()),
		Deps:     e.depVersions(n),
		Staged: func() {
			if err := store.SetStatus(ctx, n.ID(), node.StatusBuilt); err != nil {
				logger.Warn("Failed to record build.", "error", err)
			}
		},
	}
	res, err := e.cfg.Builder.Build(ctx, job)
	if err != nil {
		e.fail(ctx, n, node.StatusBuildFailed, err)
		return err
	}
	if err := store.SetStatus(ctx, n.ID(), node.StatusInstalled); err != nil {
		return err
	}
	if err := store.SetOutput(ctx, n.ID(), res.Receipt); err != nil {
		return err
	}

	if e.cfg.PostInstaller == nil {
		return store.SetStatus(ctx, n.ID(), node.StatusPostInstalled)
	}
	target := hooks.Target{Formula: n.Formula, Prefix: res.Prefix, Options: n.Options, Deps: job.Deps}
	if err := e.cfg.PostInstaller.Run(ctx, target); err != nil {
		logger.Error("Post-install failed, the formula stays installed.", "error", err)
		e.fail(ctx, n, node.StatusPostInstallFailed, err)
		return nil
	}
	return store.SetStatus(ctx, n.ID(), node.StatusPostInstalled)
}

func (e *Executor) fail(ctx context.Context, n *node.Node, status node.Status, cause error) {
	logger := ctxlog.FromContext(ctx)
	if err := e.cfg.Store.SetStatus(ctx, n.ID(), status); err != nil {
		logger.Warn("Failed to record failure.", "status", status, "error", err)
	}
	if err := e.cfg.Store.SetError(ctx, n.ID(), cause); err != nil {
		logger.Warn("Failed to record error.", "error", err)
	}
}

// skip records cause for n unless n already failed on its own.
func (e *Executor) skip(ctx context.Context, n *node.Node, cause error) {
	logger := ctxlog.FromContext(ctx)
	if status, err := e.cfg.Store.GetStatus(ctx, n.ID()); err == nil && status.Failed() {
		return
	}
	logger.Debug("Skipping formula.", "reason", cause)
	if err := e.cfg.Store.SetStatus(ctx, n.ID(), node.StatusSkipped); err != nil {
		logger.Warn("Failed to record skip.", "error", err)
	}
	if err := e.cfg.Store.SetError(ctx, n.ID(), cause); err != nil {
		logger.Warn("Failed to record error.", "error", err)
	}
}

// skipDependents fails n in the scheduler and marks every transitive
// dependent as skipped because of it.
func (e *Executor) skipDependents(ctx context.Context, sch scheduler.Scheduler, n *node.Node) {
	for _, d := range sch.Fail(n) {
		e.skip(ctx, d, &node.SkippedError{Upstream: n.ID()})
	}
}
