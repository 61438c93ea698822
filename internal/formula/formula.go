// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Formula structure and its constituent value types.
package formula

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/brewgridgo/internal/config"
)

// Phase is the lifecycle stage at which a dependency is required.
type Phase string

const (
	PhaseBuild    Phase = "build"
	PhaseRun      Phase = "run"
	PhaseOptional Phase = "optional"
)

// ParsePhase parses a phase name. The empty string is the run phase.
func ParsePhase(s string) (Phase, bool) {
	switch Phase(s) {
	case "", PhaseRun:
		return PhaseRun, true
	case PhaseBuild:
		return PhaseBuild, true
	case PhaseOptional:
		return PhaseOptional, true
	}
	return "", false
}

// Strategy names the way a source is retrieved.
type Strategy string

const (
	StrategyArchive       Strategy = "archive"
	StrategyGitHubRelease Strategy = "github_private_release"
	StrategyGit           Strategy = "git"
)

// ParseStrategy parses a strategy name. The empty string is an archive.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case "", StrategyArchive:
		return StrategyArchive, true
	case StrategyGitHubRelease:
		return StrategyGitHubRelease, true
	case StrategyGit:
		return StrategyGit, true
	}
	return "", false
}

// Source describes where an artifact comes from and how to verify it.
type Source struct {
	URL      string
	SHA256   string
	Strategy Strategy
	// Branch and Head are only set for the VCS head source.
	Branch string
	Head   bool
}

// SourceEntry is one row of a formula's source table.
type SourceEntry struct {
	Predicate Predicate
	Source    Source
}

// Dependency is a declared dependency on another formula.
type Dependency struct {
	Name  string
	Phase Phase
}

// Option is a declared build option. Names are stored without their
// `with-`/`without-` prefix.
type Option struct {
	Name        string
	Description string
	Default     bool
}

// Formula is a validated build recipe. Instances are created by New and
// are read-only afterwards.
type Formula struct {
	Name     string
	File     string
	Desc     string
	Homepage string
	License  string
	Version  string
	KegOnly  string

	Sources           []SourceEntry
	Head              *Source
	Dependencies      []Dependency
	Options           []Option
	DeprecatedOptions map[string]string

	Install     *config.InstallDefinition
	PostInstall *config.PostInstallDefinition
	Caveats     hcl.Expression
	Service     *config.ServiceDefinition
	Test        *config.TestDefinition
}

// Option looks up a declared option by its normalized name.
func (f *Formula) Option(name string) (Option, bool) {
	for _, o := range f.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// DependenciesIn returns the declared dependencies whose phase is one of
// phases, in declaration order.
func (f *Formula) DependenciesIn(phases ...Phase) []Dependency {
	var out []Dependency
	for _, d := range f.Dependencies {
		for _, p := range phases {
			if d.Phase == p {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// String returns "name version".
func (f *Formula) String() string {
	return f.Name + " " + f.Version
}
