package hooks

import (
	"context"
	"path/filepath"

	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/spf13/afero"
)

// PostInstaller runs a formula's post_install block.
type PostInstaller struct {
	Runtime
}

// Run creates the declared directories and the data directory, then runs
// the initialize command unless the skip variable is set or the data
// directory already holds the marker file. Running it again on an
// initialized install does nothing.
func (p *PostInstaller) Run(ctx context.Context, t Target) error {
	f := t.Formula
	pi := f.PostInstall
	if pi == nil {
		return nil
	}
	logger := ctxlog.FromContext(ctx).With("formula", f.Name)
	fs := p.fs()

	fail := func(step string, err error) error {
		return &PostInstallError{Formula: f.Name, Step: step, Err: err}
	}

	scope, dirs, err := p.scope(t)
	if err != nil {
		return fail("data_dir", err)
	}

	paths, err := p.Evaluator.Strings(pi.Mkpath, scope)
	if err != nil {
		return fail("mkpath", err)
	}
	paths = append(paths, dirs.Effective())
	for _, dir := range paths {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fail("mkpath", err)
		}
	}

	if dirs.LegacyExists {
		logger.Warn("Using the legacy data directory. Move it to the versioned location to stop sharing it between versions.",
			"legacy", dirs.Legacy, "versioned", dirs.Versioned)
	}

	if p.skipped(pi.SkipEnv) {
		logger.Info("Skipping initialization.", "env", pi.SkipEnv)
		return nil
	}

	if pi.Marker != "" {
		exists, err := afero.Exists(fs, filepath.Join(dirs.Effective(), pi.Marker))
		if err != nil {
			return fail("marker", err)
		}
		if exists {
			logger.Debug("Data directory already initialized.", "data_dir", dirs.Effective())
			return nil
		}
	}

	args, err := p.Evaluator.Strings(pi.Initialize, scope)
	if err != nil {
		return fail("initialize", err)
	}
	if len(args) == 0 {
		return nil
	}

	logger.Info("Initializing data directory.", "data_dir", dirs.Effective(), "command", args[0])
	out, err := p.runner().Run(ctx, Command{Args: args, Dir: t.Prefix})
	if err != nil {
		return &PostInstallError{Formula: f.Name, Step: "initialize", Output: out, Err: err}
	}
	return nil
}
