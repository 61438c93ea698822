package git_checkout

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Depth limits history; zero means the default shallow depth of 1 and a
	// negative value clones full history.
	Depth int
}

// Cloner checks out the tip of a branch for head builds.
type Cloner struct {
	depth int
}

// Checkout clones src.URL into dir.
func (c *Cloner) Checkout(ctx context.Context, src formula.Source, dir string) error {
	logger := ctxlog.FromContext(ctx)

	opts := &git.CloneOptions{
		URL:          src.URL,
		SingleBranch: true,
		Depth:        c.depth,
	}
	if src.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Branch)
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return fmt.Errorf("cloning %s: %w", src.URL, err)
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD of %s: %w", src.URL, err)
	}
	logger.Debug("Cloned head source.", "commit", head.Hash().String())
	return nil
}

// Register registers the git strategy with the registry.
func (m *Module) Register(r *registry.Registry) {
	depth := m.Depth
	switch {
	case depth == 0:
		depth = 1
	case depth < 0:
		depth = 0
	}
	r.RegisterTree(formula.StrategyGit, &Cloner{depth: depth})
}
