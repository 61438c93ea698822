package config

import "maps"

// Scope is the immutable variable set that deferred expressions are
// evaluated against. Use the With* methods to derive a modified copy.
type Scope struct {
	Vars    map[string]string
	Options map[string]bool
	Head    bool
	Deps    map[string]DepScope
}

// DepScope exposes an installed dependency to expressions as `deps["name"]`.
type DepScope struct {
	Version    string
	OptPrefix  string
	OptBin     string
	OptInclude string
	OptLib     string
}

// NewScope creates a scope from the given variables.
func NewScope(vars map[string]string) *Scope {
	return &Scope{
		Vars:    maps.Clone(vars),
		Options: map[string]bool{},
		Deps:    map[string]DepScope{},
	}
}

func (s *Scope) clone() *Scope {
	return &Scope{
		Vars:    maps.Clone(s.Vars),
		Options: maps.Clone(s.Options),
		Head:    s.Head,
		Deps:    maps.Clone(s.Deps),
	}
}

// WithVar returns a copy of the scope with one variable set.
func (s *Scope) WithVar(key, value string) *Scope {
	c := s.clone()
	if c.Vars == nil {
		c.Vars = map[string]string{}
	}
	c.Vars[key] = value
	return c
}

// WithOptions returns a copy of the scope carrying the given build options.
func (s *Scope) WithOptions(options map[string]bool, head bool) *Scope {
	c := s.clone()
	c.Options = maps.Clone(options)
	c.Head = head
	return c
}

// WithDep returns a copy of the scope exposing one dependency.
func (s *Scope) WithDep(name string, dep DepScope) *Scope {
	c := s.clone()
	if c.Deps == nil {
		c.Deps = map[string]DepScope{}
	}
	c.Deps[name] = dep
	return c
}

// Var returns a variable or the empty string.
func (s *Scope) Var(key string) string {
	return s.Vars[key]
}

// KnownVariables lists the scalar variable names an expression may
// reference, besides the structured `build` and `deps` objects.
var KnownVariables = []string{
	"name", "version", "version_major", "root", "destdir",
	"prefix", "bin", "sbin", "include", "lib", "share", "pkgshare",
	"etc", "var", "log_dir",
	"opt_prefix", "opt_bin", "opt_include", "opt_lib",
	"data_dir", "legacy_data_dir", "testpath",
}
