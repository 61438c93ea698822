package build

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/specialistvlad/brewgridgo/internal/layout"
)

// Env is the environment a build's stages run with. It is immutable; the
// With methods return modified copies.
type Env struct {
	vars           map[string]string
	includePaths   []string
	libraryPaths   []string
	pkgConfigPaths []string
	path           []string
}

// passthrough are the host variables a build inherits by default.
var passthrough = []string{"HOME", "LANG", "LC_ALL", "PATH", "TMPDIR", "USER"}

// HostBase picks the passthrough variables out of the process environment.
func HostBase() map[string]string {
	base := map[string]string{}
	for _, k := range passthrough {
		if v, ok := os.LookupEnv(k); ok {
			base[k] = v
		}
	}
	return base
}

// NewEnv derives a build environment from base and the opt prefixes of
// deps, in the given order.
func NewEnv(base map[string]string, l layout.Layout, deps ...string) Env {
	e := Env{vars: maps.Clone(base)}
	if e.vars == nil {
		e.vars = map[string]string{}
	}
	for _, d := range deps {
		opt := l.Opt(d)
		e.includePaths = append(e.includePaths, filepath.Join(opt, "include"))
		e.libraryPaths = append(e.libraryPaths, filepath.Join(opt, "lib"))
		e.pkgConfigPaths = append(e.pkgConfigPaths, filepath.Join(opt, "lib", "pkgconfig"))
		e.path = append(e.path, filepath.Join(opt, "bin"))
	}
	return e
}

func (e Env) clone() Env {
	return Env{
		vars:           maps.Clone(e.vars),
		includePaths:   slices.Clone(e.includePaths),
		libraryPaths:   slices.Clone(e.libraryPaths),
		pkgConfigPaths: slices.Clone(e.pkgConfigPaths),
		path:           slices.Clone(e.path),
	}
}

// With returns a copy with one variable set.
func (e Env) With(key, value string) Env {
	c := e.clone()
	if c.vars == nil {
		c.vars = map[string]string{}
	}
	c.vars[key] = value
	return c
}

// WithVars returns a copy with all of vars set.
func (e Env) WithVars(vars map[string]string) Env {
	c := e.clone()
	if c.vars == nil {
		c.vars = map[string]string{}
	}
	maps.Copy(c.vars, vars)
	return c
}

// Get returns a plain variable as set on the environment.
func (e Env) Get(key string) string {
	return e.vars[key]
}

// IncludePaths returns the header search path.
func (e Env) IncludePaths() []string { return slices.Clone(e.includePaths) }

// LibraryPaths returns the library search path.
func (e Env) LibraryPaths() []string { return slices.Clone(e.libraryPaths) }

// Environ renders the environment as sorted KEY=VALUE pairs. The search
// paths are prepended to CPPFLAGS, LDFLAGS, PKG_CONFIG_PATH and PATH.
func (e Env) Environ() []string {
	vars := maps.Clone(e.vars)
	if vars == nil {
		vars = map[string]string{}
	}

	prepend := func(key, sep string, parts []string) {
		if len(parts) == 0 {
			return
		}
		if cur := vars[key]; cur != "" {
			parts = append(slices.Clone(parts), cur)
		}
		vars[key] = strings.Join(parts, sep)
	}
	prefixed := func(flag string, paths []string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = flag + p
		}
		return out
	}
	list := string(filepath.ListSeparator)

	prepend("CPPFLAGS", " ", prefixed("-I", e.includePaths))
	prepend("LDFLAGS", " ", prefixed("-L", e.libraryPaths))
	prepend("PKG_CONFIG_PATH", list, e.pkgConfigPaths)
	prepend("PATH", list, e.path)

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}
