package app

import (
	"context"
	"fmt"
	"runtime"

	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/hooks"
	"github.com/specialistvlad/brewgridgo/internal/receipt"
)

// ServiceFormat selects how a service definition is rendered.
type ServiceFormat string

const (
	ServiceLaunchd ServiceFormat = "launchd"
	ServiceSystemd ServiceFormat = "systemd"
)

// DefaultServiceFormat returns the supervisor format of the host.
func DefaultServiceFormat() ServiceFormat {
	if runtime.GOOS == "darwin" {
		return ServiceLaunchd
	}
	return ServiceSystemd
}

// target describes the linked install of name. A formula that is not
// installed is described as it would be installed with default options.
func (a *App) target(name string) (hooks.Target, bool, error) {
	f, err := a.Formula(name)
	if err != nil {
		return hooks.Target{}, false, err
	}
	r, err := a.receipts.Current(name)
	if err != nil {
		if !receipt.IsNotExist(err) {
			return hooks.Target{}, false, err
		}
		opts := f.DefaultOptions()
		return hooks.Target{Formula: f, Prefix: a.layout.KegFor(f, opts), Options: opts}, false, nil
	}
	opts := f.DefaultOptions()
	for _, o := range r.Options {
		opts.Enabled[o] = true
	}
	opts.Head = r.Head
	return hooks.Target{
		Formula: f,
		Prefix:  a.layout.Keg(f.Name, r.Version),
		Options: opts,
		Deps:    r.Dependencies,
	}, true, nil
}

// Test runs the test block of an installed formula.
func (a *App) Test(ctx context.Context, name string) error {
	ctx, logger := ctxlog.With(a.context(ctx), "formula", name)
	t, installed, err := a.target(name)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("formula %s is not installed", name)
	}
	tester := &hooks.Tester{Runtime: a.hooks}
	if err := tester.Run(ctx, t); err != nil {
		return err
	}
	logger.Info("Formula passed its tests.", "prefix", t.Prefix)
	return nil
}

// Caveats returns the caveats of name, or "" when there are none.
func (a *App) Caveats(ctx context.Context, name string) (string, error) {
	t, _, err := a.target(name)
	if err != nil {
		return "", err
	}
	return a.hooks.Caveats(t)
}

// Service renders the service definition of name in the given format.
func (a *App) Service(ctx context.Context, name string, format ServiceFormat) (string, error) {
	t, _, err := a.target(name)
	if err != nil {
		return "", err
	}
	spec, err := a.hooks.Service(t)
	if err != nil {
		return "", err
	}
	if spec == nil {
		return "", fmt.Errorf("formula %s does not declare a service", name)
	}
	switch format {
	case ServiceLaunchd:
		return spec.Plist(), nil
	case ServiceSystemd:
		return spec.SystemdUnit(), nil
	}
	return "", fmt.Errorf("unknown service format %q", format)
}
