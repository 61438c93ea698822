package localexecutor

import (
	"context"

	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/node"
	"golang.org/x/sync/errgroup"
)

// prefetch fetches the sources of every formula that needs a build,
// at most Workers at a time. The first failure cancels the other fetches.
func (e *Executor) prefetch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for _, n := range e.nodes {
		status, err := e.cfg.Store.GetStatus(ctx, n.ID())
		if err != nil {
			return err
		}
		if status != node.StatusResolved {
			continue
		}
		g.Go(func() error {
			err := e.fetch(gctx, n)
			if err == nil {
				return e.cfg.Store.SetStatus(gctx, n.ID(), node.StatusFetched)
			}
			if gctx.Err() != nil {
				// Interrupted by another failure or by the caller.
				return gctx.Err()
			}
			logger.Error("Failed to fetch source.", "formula", n.ID(), "error", err)
			e.fail(ctx, n, node.StatusFetchFailed, err)
			return err
		})
	}
	return g.Wait()
}

func (e *Executor) fetch(ctx context.Context, n *node.Node) error {
	src, err := n.Formula.SelectSource(e.cfg.Platform, n.Options.Head)
	if err != nil {
		return err
	}
	art, err := e.cfg.Fetcher.Fetch(ctx, n.Formula, src)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.artifacts[n.ID()] = art
	e.mu.Unlock()
	return nil
}
