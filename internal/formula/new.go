// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file contains the construction and validation of a Formula from its
// raw definition.
package formula

import (
	"fmt"
	"regexp"

	"github.com/specialistvlad/brewgridgo/internal/config"
)

var sha256Pattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// validator accumulates problems so a single error reports all of them.
type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// New validates def and builds a Formula from it.
func New(def *config.FormulaDefinition) (*Formula, error) {
	v := &validator{}

	if def.Name == "" {
		v.addf("name is required")
	}
	if def.Version == "" {
		v.addf("version is required")
	}

	f := &Formula{
		Name:              def.Name,
		File:              def.File,
		Desc:              def.Desc,
		Homepage:          def.Homepage,
		License:           def.License,
		Version:           def.Version,
		KegOnly:           def.KegOnly,
		DeprecatedOptions: make(map[string]string),
		Install:           def.Install,
		PostInstall:       def.PostInstall,
		Caveats:           def.Caveats,
		Service:           def.Service,
		Test:              def.Test,
	}

	f.Sources = buildSourceTable(v, def.Sources)
	if def.Head != nil {
		if def.Head.URL == "" {
			v.addf("head: url is required")
		}
		f.Head = &Source{URL: def.Head.URL, Branch: def.Head.Branch, Strategy: StrategyGit, Head: true}
	}
	if len(f.Sources) == 0 && f.Head == nil {
		v.addf("at least one source or a head source is required")
	}

	f.Dependencies = buildDependencies(v, def.Name, def.Dependencies)
	f.Options = buildOptions(v, def.Options, f.Dependencies)

	for _, d := range def.DeprecatedOptions {
		target, _ := normalizeOption(d.ReplacedBy)
		if _, ok := f.Option(target); !ok {
			v.addf("deprecated option %q replaced by undeclared option %q", d.Name, d.ReplacedBy)
			continue
		}
		if _, dup := f.DeprecatedOptions[d.Name]; dup {
			v.addf("deprecated option %q declared more than once", d.Name)
			continue
		}
		f.DeprecatedOptions[d.Name] = d.ReplacedBy
	}

	if def.Install != nil {
		seen := make(map[string]struct{})
		for _, s := range def.Install.Stages {
			if _, dup := seen[s.Name]; dup {
				v.addf("stage %q declared more than once", s.Name)
			}
			seen[s.Name] = struct{}{}
			if (s.Command == nil) == (s.Args == nil) {
				v.addf("stage %q: exactly one of command or args is required", s.Name)
			}
		}
	}

	if len(v.problems) > 0 {
		return nil, &MalformedSpecError{Formula: def.Name, File: def.File, Problems: v.problems}
	}
	return f, nil
}

// FromModel validates every definition in the model and returns the
// formulas keyed by name.
func FromModel(m *config.Model) (map[string]*Formula, error) {
	out := make(map[string]*Formula, len(m.Formulas))
	for _, name := range m.Order {
		f, err := New(m.Formulas[name])
		if err != nil {
			return nil, err
		}
		out[name] = f
	}
	return out, nil
}

func buildSourceTable(v *validator, defs []*config.SourceDefinition) []SourceEntry {
	var table []SourceEntry
	seen := make(map[Predicate]struct{})
	for _, s := range defs {
		pred := Predicate{OS: s.OS, Arch: s.Arch}
		if _, dup := seen[pred]; dup {
			v.addf("conflicting source blocks for platform %s", pred)
			continue
		}
		seen[pred] = struct{}{}

		strategy, ok := ParseStrategy(s.Strategy)
		if !ok {
			v.addf("source %s: unknown strategy %q", pred, s.Strategy)
			continue
		}
		if strategy == StrategyGit {
			v.addf("source %s: the git strategy is only valid for head sources", pred)
			continue
		}
		if s.URL == "" {
			v.addf("source %s: url is required", pred)
		}
		switch {
		case s.SHA256 == "":
			v.addf("source %s: sha256 checksum is required", pred)
		case !sha256Pattern.MatchString(s.SHA256):
			v.addf("source %s: malformed sha256 checksum %q", pred, s.SHA256)
		}
		table = append(table, SourceEntry{
			Predicate: pred,
			Source:    Source{URL: s.URL, SHA256: s.SHA256, Strategy: strategy},
		})
	}
	return table
}

func buildDependencies(v *validator, self string, defs []*config.DependencyDefinition) []Dependency {
	var deps []Dependency
	seen := make(map[string]struct{})
	for _, d := range defs {
		if d.Name == "" {
			v.addf("dependency name is required")
			continue
		}
		if d.Name == self {
			v.addf("formula cannot depend on itself")
			continue
		}
		if _, dup := seen[d.Name]; dup {
			v.addf("dependency %q declared more than once", d.Name)
			continue
		}
		seen[d.Name] = struct{}{}

		phase, ok := ParsePhase(d.Phase)
		if !ok {
			v.addf("dependency %q: unknown phase %q", d.Name, d.Phase)
			continue
		}
		deps = append(deps, Dependency{Name: d.Name, Phase: phase})
	}
	return deps
}

// buildOptions normalizes declared options and adds an implicit option for
// every optional dependency that has no explicit one.
func buildOptions(v *validator, defs []*config.OptionDefinition, deps []Dependency) []Option {
	var opts []Option
	seen := make(map[string]struct{})
	for _, o := range defs {
		name, negative := normalizeOption(o.Name)
		if name == "" {
			v.addf("option name is required")
			continue
		}
		if _, dup := seen[name]; dup {
			v.addf("option %q declared more than once", name)
			continue
		}
		seen[name] = struct{}{}
		opts = append(opts, Option{Name: name, Description: o.Description, Default: o.Default || negative})
	}
	for _, d := range deps {
		if d.Phase != PhaseOptional {
			continue
		}
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		opts = append(opts, Option{Name: d.Name, Description: "Build with " + d.Name + " support"})
	}
	return opts
}
