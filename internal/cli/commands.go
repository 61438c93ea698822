package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/brewgridgo/internal/app"
	"github.com/specialistvlad/brewgridgo/internal/build"
	"github.com/specialistvlad/brewgridgo/internal/hooks"
	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/spf13/cobra"
)

func (c *command) newInstallCommand() *cobra.Command {
	var head, force bool
	cmd := &cobra.Command{
		Use:   "install <formula>... [--with-X] [--without-X]",
		Short: "Build and install formulas and their dependencies",
		Args:  atLeastOneFormula,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd, force)
			if err != nil {
				return err
			}
			req := app.Request{Names: args, Flags: c.options, Head: head}
			outcomes, runErr := a.Install(cmd.Context(), req)
			c.printOutcomes(outcomes)
			if runErr != nil {
				return runErr
			}
			for _, name := range args {
				caveats, err := a.Caveats(cmd.Context(), name)
				if err != nil {
					return err
				}
				if caveats != "" {
					fmt.Fprintln(c.outW, header("Caveats for "+name))
					fmt.Fprint(c.outW, caveats)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&head, "head", false, "Build from the tip of the formula's VCS branch.")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild formulas that are already up to date.")
	return cmd
}

func (c *command) printOutcomes(outcomes []app.Outcome) {
	for _, o := range outcomes {
		style := okStyle
		switch {
		case o.Status.Failed():
			style = failStyle
		case o.Status == node.StatusSkipped:
			style = warnStyle
		}
		line := fmt.Sprintf("%s: %s", o.Name, o.Status)
		var skipped *node.SkippedError
		if o.Err != nil && (o.Status.Failed() || errors.As(o.Err, &skipped)) {
			line += " (" + o.Err.Error() + ")"
		}
		fmt.Fprintln(c.outW, style.Render(line))
	}
	for _, o := range outcomes {
		if o.Status.Failed() {
			c.printOutput(o.Name, o.Err)
		}
	}
}

// printOutput writes the captured command output of a failed build or
// post-install to errW.
func (c *command) printOutput(name string, err error) {
	var output string
	var stageErr *build.BuildStageError
	var hookErr *hooks.PostInstallError
	switch {
	case errors.As(err, &stageErr):
		output = stageErr.Output
	case errors.As(err, &hookErr):
		output = hookErr.Output
	}
	if strings.TrimSpace(output) == "" {
		return
	}
	fmt.Fprintln(c.errW, header("Output of "+name))
	fmt.Fprint(c.errW, output)
	if !strings.HasSuffix(output, "\n") {
		fmt.Fprintln(c.errW)
	}
}

func (c *command) newPlanCommand() *cobra.Command {
	var head bool
	cmd := &cobra.Command{
		Use:   "plan <formula>... [--with-X] [--without-X]",
		Short: "Print the build plan without installing anything",
		Args:  atLeastOneFormula,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd, false)
			if err != nil {
				return err
			}
			plan, err := a.Plan(cmd.Context(), app.Request{Names: args, Flags: c.options, Head: head})
			if err != nil {
				return err
			}
			a.WritePlan(plan)
			return nil
		},
	}
	cmd.Flags().BoolVar(&head, "head", false, "Plan a build from the VCS branch tip.")
	return cmd
}

func (c *command) newTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <formula>",
		Short: "Run the test block of an installed formula",
		Args:  exactlyOneFormula,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd, false)
			if err != nil {
				return err
			}
			if err := a.Test(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(c.outW, okStyle.Render(args[0]+": tests passed"))
			return nil
		},
	}
}

func (c *command) newCaveatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "caveats <formula>",
		Short: "Print the caveats of a formula",
		Args:  exactlyOneFormula,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd, false)
			if err != nil {
				return err
			}
			caveats, err := a.Caveats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if caveats == "" {
				return nil
			}
			fmt.Fprintln(c.outW, header("Caveats for "+args[0]))
			fmt.Fprint(c.outW, caveats)
			return nil
		},
	}
}

func (c *command) newServiceCommand() *cobra.Command {
	format := string(app.DefaultServiceFormat())
	cmd := &cobra.Command{
		Use:   "service <formula>",
		Short: "Print the service definition of a formula",
		Args:  exactlyOneFormula,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch app.ServiceFormat(format) {
			case app.ServiceLaunchd, app.ServiceSystemd:
			default:
				return usageError(fmt.Errorf("invalid format %q: must be 'launchd' or 'systemd'", format))
			}
			a, err := c.newApp(cmd, false)
			if err != nil {
				return err
			}
			def, err := a.Service(cmd.Context(), args[0], app.ServiceFormat(format))
			if err != nil {
				return err
			}
			fmt.Fprint(c.outW, def)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", format, "Service definition format. Options: 'launchd' or 'systemd'.")
	return cmd
}
