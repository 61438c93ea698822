package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/brewgridgo/internal/app"
	"github.com/specialistvlad/brewgridgo/internal/hcl"
	"github.com/specialistvlad/brewgridgo/internal/settings"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	formulaPath string
	prefix      string
	cacheDir    string
	workers     int
	logLevel    string
	logFormat   string
	timeout     time.Duration
}

type command struct {
	outW, errW io.Writer
	flags      globalFlags
	root       *cobra.Command
	// options are the formula option flags pulled out of the arguments
	// before cobra sees them.
	options []string
}

// Execute runs the command line args and writes results to outW and logs
// to errW.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	c := &command{outW: outW, errW: errW}
	root := c.newRootCommand()

	args, c.options = c.extractOptionFlags(args)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *command) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "brewgridgo",
		Short:         "Resolve, build and install package formulas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.outW)
	root.SetErr(c.outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	f := root.PersistentFlags()
	f.StringVar(&c.flags.configPath, "config", "", "Path to a TOML settings file.")
	f.StringVar(&c.flags.formulaPath, "formula-path", "", "Path to a formula file or a directory of formulas.")
	f.StringVar(&c.flags.prefix, "prefix", "", "Root of the install tree.")
	f.StringVar(&c.flags.cacheDir, "cache", "", "Directory for downloaded sources.")
	f.IntVar(&c.flags.workers, "workers", 0, "Number of concurrent fetches and builds.")
	f.StringVar(&c.flags.logLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.StringVar(&c.flags.logFormat, "log-format", "", "Log output format. Options: 'text' or 'json'.")
	f.DurationVar(&c.flags.timeout, "timeout", 0, "Abort the run after this long. 0 means no limit.")

	root.AddCommand(
		c.newInstallCommand(),
		c.newPlanCommand(),
		c.newTestCommand(),
		c.newCaveatsCommand(),
		c.newServiceCommand(),
	)
	c.root = root
	return root
}

// extractOptionFlags separates formula option flags such as --with-cassert
// or --enable-cassert from the install and plan arguments. Any double-dash
// flag the command does not define counts as an option flag.
func (c *command) extractOptionFlags(args []string) (rest, options []string) {
	cmd, _, err := c.root.Find(args)
	if err != nil || (cmd.Name() != "install" && cmd.Name() != "plan") {
		return args, nil
	}
	for i, a := range args {
		if a == "--" {
			return append(rest, args[i:]...), options
		}
		name, ok := strings.CutPrefix(a, "--")
		if ok && name != "" {
			name, _, _ = strings.Cut(name, "=")
			if cmd.Flags().Lookup(name) == nil && c.root.PersistentFlags().Lookup(name) == nil && name != "help" {
				options = append(options, a)
				continue
			}
		}
		rest = append(rest, a)
	}
	return rest, options
}

// config layers the settings file, the environment and the flags that were
// set explicitly.
func (c *command) config(cmd *cobra.Command, force bool) (*app.Config, error) {
	s, err := settings.Load(c.flags.configPath, nil)
	if err != nil {
		return nil, usageError(err)
	}
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("formula-path") {
		s.FormulaPath = c.flags.formulaPath
	}
	if changed("prefix") {
		s.Prefix = c.flags.prefix
	}
	if changed("cache") {
		s.CacheDir = c.flags.cacheDir
	}
	if changed("workers") {
		s.Workers = c.flags.workers
	}
	if changed("log-level") {
		s.LogLevel = strings.ToLower(c.flags.logLevel)
	}
	if changed("log-format") {
		s.LogFormat = strings.ToLower(c.flags.logFormat)
	}
	if changed("timeout") {
		s.Timeout = c.flags.timeout
	}

	cfg, err := app.NewConfig(app.Config{
		FormulaPath: s.FormulaPath,
		Prefix:      s.Prefix,
		CacheDir:    s.CacheDir,
		LogFormat:   s.LogFormat,
		LogLevel:    s.LogLevel,
		Workers:     s.Workers,
		Timeout:     s.Timeout,
		MaxRetries:  s.MaxRetries,
		GitDepth:    s.GitDepth,
		GitHubToken: s.GitHubToken,
		Force:       force,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

func (c *command) newApp(cmd *cobra.Command, force bool) (*app.App, error) {
	cfg, err := c.config(cmd, force)
	if err != nil {
		return nil, err
	}
	return app.NewApp(c.outW, c.errW, cfg, hcl.NewLoader(), hcl.NewEvaluator())
}

func exactlyOneFormula(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageError(fmt.Errorf("%s takes exactly one formula, got %d", cmd.Name(), len(args)))
	}
	return nil
}

func atLeastOneFormula(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageError(fmt.Errorf("%s needs at least one formula", cmd.Name()))
	}
	return nil
}
