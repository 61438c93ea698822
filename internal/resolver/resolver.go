package resolver

import (
	"context"
	"errors"

	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/dag"
	"github.com/specialistvlad/brewgridgo/internal/formula"
)

// Request describes what to resolve.
type Request struct {
	// Names are the requested formulas, in request order.
	Names []string
	// Options holds explicit option selections for requested formulas.
	// Formulas without an entry use their defaults.
	Options map[string]formula.BuildOptions
	// EnabledOptional lists optional dependencies enabled for every formula.
	EnabledOptional []string
}

// Resolver computes BuildPlans over a fixed set of known formulas.
type Resolver struct {
	formulas map[string]*formula.Formula
}

// New creates a resolver over the known formula set.
func New(formulas map[string]*formula.Formula) *Resolver {
	return &Resolver{formulas: formulas}
}

// Resolve computes the BuildPlan for req. Resolving the same request over
// the same formula set always yields the same plan.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*BuildPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)

	optional := make(map[string]bool, len(req.EnabledOptional))
	for _, name := range req.EnabledOptional {
		optional[name] = true
	}

	plan := &BuildPlan{options: make(map[string]formula.BuildOptions)}
	seen := make(map[string]bool)
	for _, name := range req.Names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := r.formulas[name]; !ok {
			return nil, &UnsatisfiedDependencyError{Missing: name}
		}
		plan.requested = append(plan.requested, name)
	}

	g := dag.New()
	visited := make(map[string]bool)

	var walk func(name string) error
	walk = func(name string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true

		f := r.formulas[name]
		opts, ok := req.Options[name]
		if !ok || !seen[name] {
			opts = f.DefaultOptions()
		}
		plan.options[name] = opts

		g.AddNode(name)
		for _, dep := range f.Dependencies {
			if dep.Phase == formula.PhaseOptional && !optional[dep.Name] && !opts.With(dep.Name) {
				logger.Debug("Skipping inactive optional dependency.", "formula", name, "dependency", dep.Name)
				continue
			}
			if _, ok := r.formulas[dep.Name]; !ok {
				return &UnsatisfiedDependencyError{From: name, Missing: dep.Name}
			}
			g.AddNode(dep.Name)
			if err := g.AddEdge(dep.Name, name); err != nil {
				return err
			}
			plan.edges = append(plan.edges, Edge{From: name, To: dep.Name, Phase: dep.Phase})
			if err := walk(dep.Name); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range plan.requested {
		if err := walk(name); err != nil {
			return nil, err
		}
	}

	order, err := g.TopologicalOrder(plan.requested...)
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, &CyclicDependencyError{Cycle: cycle.Path}
		}
		return nil, err
	}

	for _, name := range order {
		plan.formulas = append(plan.formulas, r.formulas[name])
	}
	logger.Debug("Resolved build plan.", "requested", plan.requested, "order", order)
	return plan, nil
}
