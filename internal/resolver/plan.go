package resolver

import (
	"maps"
	"slices"

	"github.com/specialistvlad/brewgridgo/internal/formula"
)

// Edge is an active dependency: From depends on To during Phase.
type Edge struct {
	From  string
	To    string
	Phase formula.Phase
}

// BuildPlan is an immutable, topologically ordered list of formulas. Every
// formula appears after all of its active dependencies. Accessors return
// copies.
type BuildPlan struct {
	formulas  []*formula.Formula
	edges     []Edge
	options   map[string]formula.BuildOptions
	requested []string
}

// Formulas returns the formulas in installation order.
func (p *BuildPlan) Formulas() []*formula.Formula {
	return slices.Clone(p.formulas)
}

// Names returns the formula names in installation order.
func (p *BuildPlan) Names() []string {
	names := make([]string, len(p.formulas))
	for i, f := range p.formulas {
		names[i] = f.Name
	}
	return names
}

// Requested returns the de-duplicated names that were asked for.
func (p *BuildPlan) Requested() []string {
	return slices.Clone(p.requested)
}

// Len returns the number of formulas in the plan.
func (p *BuildPlan) Len() int {
	return len(p.formulas)
}

// Formula returns the named formula if it is part of the plan.
func (p *BuildPlan) Formula(name string) (*formula.Formula, bool) {
	for _, f := range p.formulas {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Edges returns all active edges in declaration order.
func (p *BuildPlan) Edges() []Edge {
	return slices.Clone(p.edges)
}

// DependenciesOf returns the active edges leaving name, in declaration order.
func (p *BuildPlan) DependenciesOf(name string) []Edge {
	var out []Edge
	for _, e := range p.edges {
		if e.From == name {
			out = append(out, e)
		}
	}
	return out
}

// DependentsOf returns the names of the formulas that depend on name.
func (p *BuildPlan) DependentsOf(name string) []string {
	var out []string
	for _, e := range p.edges {
		if e.To == name {
			out = append(out, e.From)
		}
	}
	return out
}

// Options returns the build options chosen for name.
func (p *BuildPlan) Options(name string) formula.BuildOptions {
	o := p.options[name]
	o.Enabled = maps.Clone(o.Enabled)
	return o
}
