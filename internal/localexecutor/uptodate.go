package localexecutor

import (
	"context"

	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/specialistvlad/brewgridgo/internal/receipt"
)

// markUpToDate moves every formula whose linked install matches the plan to
// StatusUpToDate. Head builds always rebuild.
func (e *Executor) markUpToDate(ctx context.Context) {
	if e.cfg.Receipts == nil || e.cfg.Force {
		return
	}
	for _, n := range e.nodes {
		_, logger := ctxlog.With(ctx, "formula", n.ID())
		if n.Options.Head {
			continue
		}
		current, err := e.cfg.Receipts.Current(n.ID())
		if err != nil {
			if !receipt.IsNotExist(err) {
				logger.Warn("Installed receipt is unreadable, rebuilding.", "error", err)
			}
			continue
		}
		drift := current.Drift(receipt.Wanted{
			Version:      layout.KegVersion(n.Formula, n.Options),
			Options:      n.Options,
			Dependencies: e.depVersions(n),
		})
		if len(drift) > 0 {
			logger.Info("Installed formula differs from the plan, rebuilding.", "changes", drift)
			continue
		}
		if err := e.cfg.Store.SetStatus(ctx, n.ID(), node.StatusUpToDate); err != nil {
			logger.Warn("Failed to record up-to-date formula.", "error", err)
		}
	}
}
