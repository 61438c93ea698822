package app

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/specialistvlad/brewgridgo/internal/resolver"
)

// WritePlan prints plan in installation order, one formula per line.
func (a *App) WritePlan(plan *resolver.BuildPlan) {
	for i, f := range plan.Formulas() {
		opts := plan.Options(f.Name)
		line := fmt.Sprintf("%d. %s %s", i+1, f.Name, layout.KegVersion(f, opts))
		if desc := describeOptions(f, opts); len(desc) > 0 {
			line += " [" + strings.Join(desc, ", ") + "]"
		}
		var deps []string
		for _, e := range plan.DependenciesOf(f.Name) {
			deps = append(deps, fmt.Sprintf("%s (%s)", e.To, e.Phase))
		}
		if len(deps) > 0 {
			line += " <- " + strings.Join(deps, ", ")
		}
		a.println(line)
	}
}

func describeOptions(f *formula.Formula, opts formula.BuildOptions) []string {
	var out []string
	for _, o := range f.Options {
		state := "without"
		if opts.With(o.Name) {
			state = "with"
		}
		out = append(out, state+"-"+o.Name)
	}
	if opts.Head {
		out = append(out, "HEAD")
	}
	return out
}
