package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/otiai10/copy"
	"github.com/specialistvlad/brewgridgo/internal/config"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/fetch"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/specialistvlad/brewgridgo/internal/receipt"
)

// Job is one formula to build.
type Job struct {
	Formula  *formula.Formula
	Options  formula.BuildOptions
	Artifact *fetch.Artifact
	// Deps maps every active dependency to its installed version.
	Deps map[string]string
	// Staged, when set, is called after the last stage succeeds and before
	// the staged keg is promoted.
	Staged func()
}

// Result describes a successful install.
type Result struct {
	Prefix  string
	Receipt *receipt.Receipt
}

// Executor runs builds against one install tree.
type Executor struct {
	Layout    layout.Layout
	Evaluator config.Evaluator
	// Base is the environment every build starts from.
	Base map[string]string
	// Now is used for receipt timestamps; it defaults to time.Now.
	Now func() time.Time
	// Link replaces the opt link of a promoted keg; it defaults to Link.
	Link func(target, link string) error
}

// Build runs the install stages of job.Formula and promotes the result.
func (e *Executor) Build(ctx context.Context, job Job) (*Result, error) {
	f := job.Formula
	ctx, logger := ctxlog.With(ctx, "formula", f.Name)

	if f.Install == nil || len(f.Install.Stages) == 0 {
		return nil, fmt.Errorf("formula %s has no install stages", f.Name)
	}

	lock, err := e.lock(ctx, f.Name)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	buildID := uuid.NewString()
	staging := filepath.Join(e.Layout.Staging(), f.Name+"-"+buildID)
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			logger.Warn("Failed to remove staging directory.", "path", staging, "error", err)
		}
	}()

	// Stages see the final keg as prefix, so paths they bake into their
	// output stay valid, and install below destdir.
	keg := e.Layout.KegFor(f, job.Options)
	workdir := filepath.Join(staging, "src")
	destdir := filepath.Join(staging, "dest")
	staged := filepath.Join(destdir, keg)
	if err := os.MkdirAll(staged, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging prefix: %w", err)
	}
	if err := e.prepareSource(ctx, job.Artifact, workdir); err != nil {
		return nil, fmt.Errorf("preparing source of %s: %w", f.Name, err)
	}
	_, statErr := os.Lstat(keg)
	hadKeg := statErr == nil

	scope := e.Layout.ScopeFor(f, keg, job.Options, job.Deps).WithVar("destdir", destdir)
	env, err := e.environment(f, scope, job.Deps)
	if err != nil {
		return nil, err
	}
	env = env.With("DESTDIR", destdir)

	logger.Info("Building formula.", "version", f.Version, "options", job.Options.EnabledNames(), "head", job.Options.Head)
	for _, stage := range f.Install.Stages {
		if err := e.runStage(ctx, f, stage, scope, env, workdir); err != nil {
			return nil, err
		}
	}
	if !hadKeg {
		if _, err := os.Lstat(keg); err == nil {
			os.RemoveAll(keg)
			return nil, fmt.Errorf("install stages of %s wrote to %s directly instead of below destdir", f.Name, keg)
		}
	}

	if job.Staged != nil {
		job.Staged()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build of %s interrupted: %w", f.Name, err)
	}

	r := &receipt.Receipt{
		Name:         f.Name,
		Version:      layout.KegVersion(f, job.Options),
		Options:      job.Options.EnabledNames(),
		Head:         job.Options.Head,
		Dependencies: job.Deps,
		BuildID:      buildID,
		Platform:     formula.CurrentPlatform().String(),
		InstalledAt:  e.now().UTC(),
	}
	if r.Dependencies == nil {
		r.Dependencies = map[string]string{}
	}
	if job.Artifact != nil {
		src := job.Artifact.Source
		r.Source = receipt.Source{URL: src.URL, SHA256: job.Artifact.SHA256, Strategy: src.Strategy, Head: src.Head}
	}
	if err := receipt.Write(staged, r); err != nil {
		return nil, err
	}

	promotion, err := Promote(ctx, staged, keg)
	if err != nil {
		return nil, fmt.Errorf("promoting %s: %w", f.Name, err)
	}
	if err := e.link(keg, e.Layout.Opt(f.Name)); err != nil {
		promotion.Rollback(ctx)
		return nil, fmt.Errorf("linking %s: %w", f.Name, err)
	}
	promotion.Commit(ctx)
	logger.Info("Installed formula.", "prefix", keg, "build_id", buildID)
	return &Result{Prefix: keg, Receipt: r}, nil
}

func (e *Executor) link(target, link string) error {
	if e.Link != nil {
		return e.Link(target, link)
	}
	return Link(target, link)
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// lock takes the per-formula lock that makes staging single-writer.
func (e *Executor) lock(ctx context.Context, name string) (*flock.Flock, error) {
	if err := os.MkdirAll(e.Layout.Locks(), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	lock := flock.New(e.Layout.LockFile(name))
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquiring build lock for %s: %w", name, err)
	}
	if !locked {
		return nil, fmt.Errorf("build lock for %s is held by another process", name)
	}
	return lock, nil
}

func (e *Executor) prepareSource(ctx context.Context, art *fetch.Artifact, workdir string) error {
	if art == nil {
		return os.MkdirAll(workdir, 0o755)
	}
	if art.Tree {
		return copy.Copy(art.Path, workdir)
	}
	return fetch.Unpack(ctx, art.Path, workdir)
}

func (e *Executor) environment(f *formula.Formula, scope *config.Scope, deps map[string]string) (Env, error) {
	names := make([]string, 0, len(deps))
	for n := range deps {
		names = append(names, n)
	}
	sort.Strings(names)
	env := NewEnv(e.Base, e.Layout, names...)

	extra, err := e.Evaluator.StringMap(f.Install.Env, scope)
	if err != nil {
		return Env{}, fmt.Errorf("evaluating install env of %s: %w", f.Name, err)
	}
	return env.WithVars(extra), nil
}

// argv evaluates a stage's command line.
func (e *Executor) argv(stage *config.StageDefinition, scope *config.Scope) ([]string, error) {
	if stage.Command != nil {
		line, err := e.Evaluator.String(stage.Command, scope)
		if err != nil {
			return nil, err
		}
		return shlex.Split(line)
	}
	return e.Evaluator.Strings(stage.Args, scope)
}

func (e *Executor) runStage(ctx context.Context, f *formula.Formula, stage *config.StageDefinition, scope *config.Scope, env Env, workdir string) error {
	logger := ctxlog.FromContext(ctx).With("stage", stage.Name)
	fail := func(err error) error {
		return &BuildStageError{Formula: f.Name, Stage: stage.Name, ExitCode: -1, Err: err}
	}

	if stage.When != nil {
		run, err := e.Evaluator.Bool(stage.When, scope)
		if err != nil {
			return fail(err)
		}
		if !run {
			logger.Debug("Skipping stage, condition is false.")
			return nil
		}
	}

	args, err := e.argv(stage, scope)
	if err != nil {
		return fail(err)
	}
	if len(args) == 0 {
		return fail(errors.New("empty command"))
	}

	dir := workdir
	if stage.Dir != nil {
		d, err := e.Evaluator.String(stage.Dir, scope)
		if err != nil {
			return fail(err)
		}
		if d != "" && !filepath.IsAbs(d) {
			d = filepath.Join(workdir, d)
		}
		if d != "" {
			dir = d
		}
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = env.Environ()
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = 5 * time.Second
	setProcessGroup(cmd)

	logger.Info("Running stage.", "command", args[0], "dir", dir)
	start := time.Now()
	err = cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &BuildStageError{Formula: f.Name, Stage: stage.Name, ExitCode: -1, Output: out.String(), Err: ctxErr}
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		logger.Error("Stage failed.", "exit_code", code, "duration", time.Since(start), "output", out.String())
		return &BuildStageError{Formula: f.Name, Stage: stage.Name, ExitCode: code, Output: out.String(), Err: err}
	}
	logger.Debug("Stage finished.", "duration", time.Since(start), "output_bytes", out.Len())
	return nil
}
