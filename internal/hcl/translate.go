package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/brewgridgo/internal/config"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// translateFormula converts the HCL-specific formula schema into the
// agnostic model, evaluating source URLs and checking that every deferred
// expression only references known variables and functions.
func (l *Loader) translateFormula(ctx context.Context, file string, b *formulaBlock) (*config.FormulaDefinition, error) {
	def := &config.FormulaDefinition{
		Name:     b.Name,
		File:     file,
		Desc:     b.Desc,
		Homepage: b.Homepage,
		License:  b.License,
		Version:  b.Version,
		KegOnly:  b.KegOnly,
		Caveats:  definedOrNil(ctx, b.Caveats, "caveats"),
	}

	evalCtx := staticEvalContext(b.Name, b.Version)
	for _, s := range b.Sources {
		url, err := evalStaticString(s.URL, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("formula %q: source url: %w", b.Name, err)
		}
		def.Sources = append(def.Sources, &config.SourceDefinition{
			OS:       s.OS,
			Arch:     s.Arch,
			URL:      url,
			SHA256:   s.SHA256,
			Strategy: s.Strategy,
		})
	}
	if b.Head != nil {
		def.Head = &config.HeadDefinition{URL: b.Head.URL, Branch: b.Head.Branch}
	}
	for _, d := range b.Dependencies {
		def.Dependencies = append(def.Dependencies, &config.DependencyDefinition{Name: d.Name, Phase: d.Phase})
	}
	for _, o := range b.Options {
		def.Options = append(def.Options, &config.OptionDefinition{
			Name:        o.Name,
			Description: o.Description,
			Default:     o.Default,
		})
	}
	for _, o := range b.DeprecatedOptions {
		def.DeprecatedOptions = append(def.DeprecatedOptions, &config.DeprecatedOptionDefinition{
			Name:       o.Name,
			ReplacedBy: o.ReplacedBy,
		})
	}

	if b.Install != nil {
		def.Install = &config.InstallDefinition{Env: definedOrNil(ctx, b.Install.Env, "install.env")}
		for _, s := range b.Install.Stages {
			def.Install.Stages = append(def.Install.Stages, &config.StageDefinition{
				Name:    s.Name,
				Command: definedOrNil(ctx, s.Command, "stage.command"),
				Args:    definedOrNil(ctx, s.Args, "stage.args"),
				When:    definedOrNil(ctx, s.When, "stage.when"),
				Dir:     definedOrNil(ctx, s.Dir, "stage.dir"),
			})
		}
	}
	if p := b.PostInstall; p != nil {
		def.PostInstall = &config.PostInstallDefinition{
			Mkpath:        definedOrNil(ctx, p.Mkpath, "post_install.mkpath"),
			DataDir:       definedOrNil(ctx, p.DataDir, "post_install.data_dir"),
			LegacyDataDir: definedOrNil(ctx, p.LegacyDataDir, "post_install.legacy_data_dir"),
			Initialize:    definedOrNil(ctx, p.Initialize, "post_install.initialize"),
			Marker:        p.Marker,
			SkipEnv:       p.SkipEnv,
		}
	}
	if s := b.Service; s != nil {
		def.Service = &config.ServiceDefinition{
			Run:         s.Run,
			KeepAlive:   definedOrNil(ctx, s.KeepAlive, "service.keep_alive"),
			Environment: definedOrNil(ctx, s.Environment, "service.environment"),
			WorkingDir:  definedOrNil(ctx, s.WorkingDir, "service.working_dir"),
			LogPath:     definedOrNil(ctx, s.LogPath, "service.log_path"),
		}
	}
	if t := b.Test; t != nil {
		def.Test = &config.TestDefinition{SkipEnv: t.SkipEnv}
		for _, c := range t.Commands {
			def.Test.Commands = append(def.Test.Commands, &config.TestCommandDefinition{Name: c.Name, Args: c.Args})
		}
		for _, a := range t.Assertions {
			def.Test.Assertions = append(def.Test.Assertions, &config.AssertionDefinition{Name: a.Name, Args: a.Args, Equals: a.Equals})
		}
	}

	if diags := l.checkReferences(deferredExpressions(def)...); diags.HasErrors() {
		return nil, fmt.Errorf("formula %q: %w", b.Name, diags)
	}
	return def, nil
}

// deferredExpressions collects every expression evaluated after loading.
func deferredExpressions(def *config.FormulaDefinition) []hcl.Expression {
	exprs := []hcl.Expression{def.Caveats}
	if i := def.Install; i != nil {
		exprs = append(exprs, i.Env)
		for _, s := range i.Stages {
			exprs = append(exprs, s.Command, s.Args, s.When, s.Dir)
		}
	}
	if p := def.PostInstall; p != nil {
		exprs = append(exprs, p.Mkpath, p.DataDir, p.LegacyDataDir, p.Initialize)
	}
	if s := def.Service; s != nil {
		exprs = append(exprs, s.Run, s.KeepAlive, s.Environment, s.WorkingDir, s.LogPath)
	}
	if t := def.Test; t != nil {
		for _, c := range t.Commands {
			exprs = append(exprs, c.Args)
		}
		for _, a := range t.Assertions {
			exprs = append(exprs, a.Args, a.Equals)
		}
	}
	return exprs
}

func evalStaticString(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", diags
	}
	if val.IsNull() {
		return "", nil
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("expected a string: %w", err)
	}
	return str.AsString(), nil
}

// definedOrNil returns nil for an optional attribute that was not present
// in the source. The HCL decoder populates omitted optional expression
// fields with zero-width placeholder expressions, so a nil check alone is
// insufficient.
func definedOrNil(ctx context.Context, expr hcl.Expression, attrName string) hcl.Expression {
	if expr == nil {
		return nil
	}
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	if !isDefined {
		return nil
	}
	return expr
}
