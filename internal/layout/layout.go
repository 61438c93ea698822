// Package layout describes the on-disk install tree: versioned kegs under
// Cellar, stable opt links, the shared var, etc and bin directories, and the
// private staging and lock directories.
package layout

import (
	"path/filepath"
	"sort"

	"github.com/specialistvlad/brewgridgo/internal/config"
	"github.com/specialistvlad/brewgridgo/internal/formula"
)

// Layout resolves paths below an install root.
type Layout struct {
	Root string
}

// New returns the layout rooted at root.
func New(root string) Layout {
	return Layout{Root: root}
}

// Fixed directories of the install tree.
func (l Layout) Cellar() string                  { return filepath.Join(l.Root, "Cellar") }
func (l Layout) Keg(name, version string) string { return filepath.Join(l.Cellar(), name, version) }
func (l Layout) Opt(name string) string          { return filepath.Join(l.Root, "opt", name) }
func (l Layout) Var() string                     { return filepath.Join(l.Root, "var") }
func (l Layout) LogDir() string                  { return filepath.Join(l.Var(), "log") }
func (l Layout) Etc() string                     { return filepath.Join(l.Root, "etc") }
func (l Layout) Bin() string                     { return filepath.Join(l.Root, "bin") }
func (l Layout) Staging() string                 { return filepath.Join(l.Root, ".staging") }
func (l Layout) Locks() string                   { return filepath.Join(l.Root, ".locks") }

// LogFile is the service log path for a formula.
func (l Layout) LogFile(name string) string {
	return filepath.Join(l.LogDir(), name+".log")
}

// DataDir is the default versioned data directory for a formula.
func (l Layout) DataDir(name string) string {
	return filepath.Join(l.Var(), name)
}

// LockFile is the per-formula lock guarding its staging directory.
func (l Layout) LockFile(name string) string {
	return filepath.Join(l.Locks(), name+".lock")
}

// Scope returns the expression variables for a formula whose files live
// under prefix, the keg. A build additionally sets destdir, the staging
// root its stages install below.
func (l Layout) Scope(name, version, major, prefix string) *config.Scope {
	opt := l.Opt(name)
	return config.NewScope(map[string]string{
		"name":            name,
		"version":         version,
		"version_major":   major,
		"root":            l.Root,
		"destdir":         "",
		"prefix":          prefix,
		"bin":             filepath.Join(prefix, "bin"),
		"sbin":            filepath.Join(prefix, "sbin"),
		"include":         filepath.Join(prefix, "include"),
		"lib":             filepath.Join(prefix, "lib"),
		"share":           filepath.Join(prefix, "share"),
		"pkgshare":        filepath.Join(prefix, "share", name),
		"etc":             l.Etc(),
		"var":             l.Var(),
		"log_dir":         l.LogDir(),
		"opt_prefix":      opt,
		"opt_bin":         filepath.Join(opt, "bin"),
		"opt_include":     filepath.Join(opt, "include"),
		"opt_lib":         filepath.Join(opt, "lib"),
		"data_dir":        l.DataDir(name),
		"legacy_data_dir": "",
		"testpath":        "",
	})
}

// DepScope exposes an installed dependency to expressions.
func (l Layout) DepScope(name, version string) config.DepScope {
	opt := l.Opt(name)
	return config.DepScope{
		Version:    version,
		OptPrefix:  opt,
		OptBin:     filepath.Join(opt, "bin"),
		OptInclude: filepath.Join(opt, "include"),
		OptLib:     filepath.Join(opt, "lib"),
	}
}

// KegVersion is the directory name an install of f is kept under. Head
// builds share a single "HEAD" keg.
func KegVersion(f *formula.Formula, opts formula.BuildOptions) string {
	if opts.Head {
		return "HEAD"
	}
	return f.Version
}

// KegFor returns the keg an install of f with opts is promoted to.
func (l Layout) KegFor(f *formula.Formula, opts formula.BuildOptions) string {
	return l.Keg(f.Name, KegVersion(f, opts))
}

// ScopeFor builds the full expression scope of f rooted at prefix, with its
// build options and the installed versions of its dependencies.
func (l Layout) ScopeFor(f *formula.Formula, prefix string, opts formula.BuildOptions, deps map[string]string) *config.Scope {
	scope := l.Scope(f.Name, f.Version, f.MajorVersion(), prefix).WithOptions(opts.Enabled, opts.Head)
	names := make([]string, 0, len(deps))
	for n := range deps {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		scope = scope.WithDep(n, l.DepScope(n, deps[n]))
	}
	return scope
}
