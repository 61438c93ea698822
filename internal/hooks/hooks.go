package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/brewgridgo/internal/config"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/spf13/afero"
)

// Target is an installed formula.
type Target struct {
	Formula *formula.Formula
	Prefix  string
	Options formula.BuildOptions
	// Deps maps active dependencies to their installed versions.
	Deps map[string]string
}

// Command is one subprocess invocation.
type Command struct {
	Args []string
	Dir  string
	Env  []string
}

// CommandRunner runs a command to completion and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner. A non-zero exit is returned as an error
// carrying the command's stderr.
func (ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	if len(c.Args) == 0 {
		return "", errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return string(out), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return string(out), err
	}
	return string(out), nil
}

// Runtime carries the collaborators shared by every hook.
type Runtime struct {
	FS        afero.Fs
	Layout    layout.Layout
	Evaluator config.Evaluator
	Runner    CommandRunner
	// Getenv reads the environment; nil means os.Getenv.
	Getenv func(string) string
}

func (r Runtime) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}

func (r Runtime) fs() afero.Fs {
	if r.FS != nil {
		return r.FS
	}
	return afero.NewOsFs()
}

func (r Runtime) runner() CommandRunner {
	if r.Runner != nil {
		return r.Runner
	}
	return ExecRunner{}
}

// skipped reports whether the named skip variable is set.
func (r Runtime) skipped(env string) bool {
	return env != "" && r.getenv(env) != ""
}

// DataDirs locates a formula's data directory.
type DataDirs struct {
	// Versioned is the per-formula directory, e.g. var/postgresql@17.
	Versioned string
	// Legacy is the shared directory older installs used; empty if the
	// formula declares none.
	Legacy       string
	LegacyExists bool
}

// Effective is the directory in use: the legacy one while it exists.
func (d DataDirs) Effective() string {
	if d.LegacyExists {
		return d.Legacy
	}
	return d.Versioned
}

// scope returns t's expression scope together with its data directories.
// The data_dir variable is set to the effective directory.
func (r Runtime) scope(t Target) (*config.Scope, DataDirs, error) {
	f := t.Formula
	scope := r.Layout.ScopeFor(f, t.Prefix, t.Options, t.Deps)

	dirs := DataDirs{Versioned: scope.Var("data_dir")}
	if pi := f.PostInstall; pi != nil {
		v, err := r.Evaluator.String(pi.DataDir, scope)
		if err != nil {
			return nil, DataDirs{}, fmt.Errorf("evaluating data_dir of %s: %w", f.Name, err)
		}
		if v != "" {
			dirs.Versioned = filepath.Clean(v)
		}
		legacy, err := r.Evaluator.String(pi.LegacyDataDir, scope)
		if err != nil {
			return nil, DataDirs{}, fmt.Errorf("evaluating legacy_data_dir of %s: %w", f.Name, err)
		}
		if legacy != "" {
			dirs.Legacy = filepath.Clean(legacy)
			dirs.LegacyExists, _ = afero.DirExists(r.fs(), dirs.Legacy)
		}
	}

	scope = scope.WithVar("data_dir", dirs.Effective()).WithVar("legacy_data_dir", dirs.Legacy)
	return scope, dirs, nil
}
