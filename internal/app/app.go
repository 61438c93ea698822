package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/brewgridgo/internal/build"
	"github.com/specialistvlad/brewgridgo/internal/config"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/fetch"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/hooks"
	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/specialistvlad/brewgridgo/internal/localsession"
	"github.com/specialistvlad/brewgridgo/internal/receipt"
	"github.com/specialistvlad/brewgridgo/internal/registry"
	"github.com/specialistvlad/brewgridgo/internal/session"
	"github.com/spf13/afero"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	layout   layout.Layout
	platform formula.Platform

	formulas  map[string]*formula.Formula
	registry  *registry.Registry
	evaluator config.Evaluator
	receipts  receipt.Store
	hooks     hooks.Runtime
	sessions  session.SessionFactory
}

// Option customizes an App, mainly for tests.
type Option func(*App)

// WithModules replaces the built-in fetch strategies.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) { a.registry = registry.New(modules...) }
}

// WithRunner replaces the command runner used by hooks.
func WithRunner(r hooks.CommandRunner) Option {
	return func(a *App) { a.hooks.Runner = r }
}

// WithPlatform overrides the detected host platform.
func WithPlatform(p formula.Platform) Option {
	return func(a *App) { a.platform = p }
}

// NewApp loads every formula below cfg.FormulaPath, validates that each of
// their sources has a fetch strategy, and wires the run machinery. Logs are
// written to logW.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, evaluator config.Evaluator, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		layout:    layout.New(cfg.Prefix),
		platform:  formula.CurrentPlatform(),
		evaluator: evaluator,
	}
	a.receipts = receipt.Store{Layout: a.layout}
	a.hooks = hooks.Runtime{FS: afero.NewOsFs(), Layout: a.layout, Evaluator: evaluator, Runner: hooks.ExecRunner{}}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = registry.New(coreModules(cfg)...)
	}
	logger.Debug("Fetch strategies registered.", "strategies", a.registry.Names())

	model, err := loader.Load(ctx, cfg.FormulaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load formulas: %w", err)
	}
	if a.formulas, err = formula.FromModel(model); err != nil {
		return nil, err
	}
	all := make([]*formula.Formula, 0, len(a.formulas))
	for _, f := range a.formulas {
		all = append(all, f)
	}
	if err := a.registry.Validate(all...); err != nil {
		return nil, err
	}
	logger.Debug("Formulas loaded.", "count", len(a.formulas))

	a.sessions = &localsession.SessionFactory{
		Fetcher: fetch.New(fetch.Config{CacheDir: cfg.CacheDir, MaxRetries: cfg.MaxRetries}, a.registry),
		Builder: &build.Executor{
			Layout:    a.layout,
			Evaluator: evaluator,
			Base:      build.HostBase(),
		},
		PostInstaller: &hooks.PostInstaller{Runtime: a.hooks},
		Receipts:      a.receipts,
		Layout:        a.layout,
		Platform:      a.platform,
		Workers:       cfg.Workers,
		Force:         cfg.Force,
	}
	return a, nil
}

// Formula returns the named formula.
func (a *App) Formula(name string) (*formula.Formula, error) {
	f, ok := a.formulas[name]
	if !ok {
		return nil, fmt.Errorf("no formula named %q", name)
	}
	return f, nil
}

// Layout returns the install tree the app works on.
func (a *App) Layout() layout.Layout {
	return a.layout
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.outW, args...)
}
