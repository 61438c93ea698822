package hcl

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/brewgridgo/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// functions is the function table available to every formula expression.
func functions() map[string]function.Function {
	return map[string]function.Function{
		"compact":   stdlib.CompactFunc,
		"concat":    stdlib.ConcatFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"lower":     stdlib.LowerFunc,
		"replace":   stdlib.ReplaceFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"upper":     stdlib.UpperFunc,
	}
}

// Evaluator is the HCL-specific implementation of config.Evaluator.
type Evaluator struct{}

// NewEvaluator creates a new HCL expression evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvalContext builds the HCL evaluation context for a scope.
func (e *Evaluator) EvalContext(scope *config.Scope) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(scope.Vars)+2)
	for k, v := range scope.Vars {
		vars[k] = cty.StringVal(v)
	}

	with := make(map[string]cty.Value, len(scope.Options))
	for k, v := range scope.Options {
		with[k] = cty.BoolVal(v)
	}
	vars["build"] = cty.ObjectVal(map[string]cty.Value{
		"with": cty.ObjectVal(with),
		"head": cty.BoolVal(scope.Head),
	})

	deps := make(map[string]cty.Value, len(scope.Deps))
	names := make([]string, 0, len(scope.Deps))
	for name := range scope.Deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d := scope.Deps[name]
		deps[name] = cty.ObjectVal(map[string]cty.Value{
			"version":     cty.StringVal(d.Version),
			"opt_prefix":  cty.StringVal(d.OptPrefix),
			"opt_bin":     cty.StringVal(d.OptBin),
			"opt_include": cty.StringVal(d.OptInclude),
			"opt_lib":     cty.StringVal(d.OptLib),
		})
	}
	vars["deps"] = cty.ObjectVal(deps)

	return &hcl.EvalContext{Variables: vars, Functions: functions()}
}

func (e *Evaluator) value(expr hcl.Expression, scope *config.Scope) (cty.Value, error) {
	val, diags := expr.Value(e.EvalContext(scope))
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if !val.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("%s: value is not known", expr.Range())
	}
	return val, nil
}

// String evaluates expr to a string. Null evaluates to "".
func (e *Evaluator) String(expr hcl.Expression, scope *config.Scope) (string, error) {
	if expr == nil {
		return "", nil
	}
	val, err := e.value(expr, scope)
	if err != nil {
		return "", err
	}
	if val.IsNull() {
		return "", nil
	}
	var out string
	if err := decode(val, cty.String, &out); err != nil {
		return "", fmt.Errorf("%s: %w", expr.Range(), err)
	}
	return out, nil
}

// Strings evaluates expr to a list of strings. A single string becomes a
// one-element list.
func (e *Evaluator) Strings(expr hcl.Expression, scope *config.Scope) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, err := e.value(expr, scope)
	if err != nil {
		return nil, err
	}
	if val.IsNull() {
		return nil, nil
	}
	if val.Type() == cty.String {
		return []string{val.AsString()}, nil
	}
	var out []string
	if err := decode(val, cty.List(cty.String), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	return out, nil
}

// Bool evaluates expr to a bool. Null evaluates to false.
func (e *Evaluator) Bool(expr hcl.Expression, scope *config.Scope) (bool, error) {
	if expr == nil {
		return false, nil
	}
	val, err := e.value(expr, scope)
	if err != nil {
		return false, err
	}
	if val.IsNull() {
		return false, nil
	}
	var out bool
	if err := decode(val, cty.Bool, &out); err != nil {
		return false, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	return out, nil
}

// StringMap evaluates expr to a map of strings.
func (e *Evaluator) StringMap(expr hcl.Expression, scope *config.Scope) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, err := e.value(expr, scope)
	if err != nil {
		return nil, err
	}
	if val.IsNull() {
		return nil, nil
	}
	out := map[string]string{}
	if err := decode(val, cty.Map(cty.String), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	return out, nil
}

// decode converts val to ty and then into the Go value pointed to by goVal.
func decode(val cty.Value, ty cty.Type, goVal any) error {
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, goVal)
}

var _ config.Evaluator = (*Evaluator)(nil)
var _ config.Loader = (*Loader)(nil)
