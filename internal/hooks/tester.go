package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/spf13/afero"
)

// Tester runs a formula's test block against its installed keg.
type Tester struct {
	Runtime
}

// Run executes the test commands, unless the skip variable is set, and then
// every output assertion. It stops at the first failure.
func (tr *Tester) Run(ctx context.Context, t Target) error {
	f := t.Formula
	def := f.Test
	logger := ctxlog.FromContext(ctx).With("formula", f.Name)
	if def == nil {
		logger.Warn("Formula has no test block.")
		return nil
	}

	fs := tr.fs()
	testpath, err := afero.TempDir(fs, "", "brewgridgo-test-")
	if err != nil {
		return fmt.Errorf("creating test directory: %w", err)
	}
	defer fs.RemoveAll(testpath)

	scope, _, err := tr.scope(t)
	if err != nil {
		return err
	}
	scope = scope.WithVar("testpath", testpath)
	runner := tr.runner()

	if tr.skipped(def.SkipEnv) {
		logger.Info("Skipping test commands.", "env", def.SkipEnv)
	} else {
		for _, c := range def.Commands {
			args, err := tr.Evaluator.Strings(c.Args, scope)
			if err != nil {
				return &AssertionError{Formula: f.Name, Assertion: c.Name, Err: err}
			}
			logger.Debug("Running test command.", "name", c.Name)
			if _, err := runner.Run(ctx, Command{Args: args, Dir: testpath}); err != nil {
				return &AssertionError{Formula: f.Name, Assertion: c.Name, Err: err}
			}
		}
	}

	for _, a := range def.Assertions {
		args, err := tr.Evaluator.Strings(a.Args, scope)
		if err != nil {
			return &AssertionError{Formula: f.Name, Assertion: a.Name, Err: err}
		}
		want, err := tr.Evaluator.String(a.Equals, scope)
		if err != nil {
			return &AssertionError{Formula: f.Name, Assertion: a.Name, Err: err}
		}
		out, err := runner.Run(ctx, Command{Args: args, Dir: testpath})
		if err != nil {
			return &AssertionError{Formula: f.Name, Assertion: a.Name, Err: err}
		}
		if got := strings.TrimSpace(out); got != want {
			return &AssertionError{Formula: f.Name, Assertion: a.Name, Expected: want, Actual: got}
		}
		logger.Debug("Assertion passed.", "name", a.Name)
	}
	logger.Info("Test passed.", "assertions", len(def.Assertions))
	return nil
}
