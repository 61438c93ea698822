package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/specialistvlad/brewgridgo/internal/formula"
)

// Downloader retrieves a single-file artifact and streams it into w.
type Downloader interface {
	Download(ctx context.Context, src formula.Source, w io.Writer) error
}

// TreeFetcher checks a source tree out into dir, which does not yet exist.
type TreeFetcher interface {
	Checkout(ctx context.Context, src formula.Source, dir string) error
}

// Module is the interface that every strategy module implements to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps strategy names to their implementations for a single
// application instance.
type Registry struct {
	downloaders map[formula.Strategy]Downloader
	trees       map[formula.Strategy]TreeFetcher
}

// New creates an empty Registry and registers the given modules into it.
func New(modules ...Module) *Registry {
	r := &Registry{
		downloaders: make(map[formula.Strategy]Downloader),
		trees:       make(map[formula.Strategy]TreeFetcher),
	}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterDownloader registers a file strategy. Registering the same name
// twice is a programmer error and panics.
func (r *Registry) RegisterDownloader(name formula.Strategy, d Downloader) {
	if r.registered(name) {
		panic(fmt.Sprintf("fetch strategy with name '%s' already registered", name))
	}
	slog.Debug("Registering fetch strategy.", "name", name, "kind", "file")
	r.downloaders[name] = d
}

// RegisterTree registers a tree strategy. Registering the same name twice
// is a programmer error and panics.
func (r *Registry) RegisterTree(name formula.Strategy, t TreeFetcher) {
	if r.registered(name) {
		panic(fmt.Sprintf("fetch strategy with name '%s' already registered", name))
	}
	slog.Debug("Registering fetch strategy.", "name", name, "kind", "tree")
	r.trees[name] = t
}

func (r *Registry) registered(name formula.Strategy) bool {
	_, d := r.downloaders[name]
	_, t := r.trees[name]
	return d || t
}

// Downloader returns the file strategy registered under name.
func (r *Registry) Downloader(name formula.Strategy) (Downloader, bool) {
	d, ok := r.downloaders[name]
	return d, ok
}

// Tree returns the tree strategy registered under name.
func (r *Registry) Tree(name formula.Strategy) (TreeFetcher, bool) {
	t, ok := r.trees[name]
	return t, ok
}

// Names returns every registered strategy name, sorted.
func (r *Registry) Names() []string {
	var names []string
	for n := range r.downloaders {
		names = append(names, string(n))
	}
	for n := range r.trees {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

// Validate checks that every source of the given formulas, including head
// sources, has a registered strategy.
func (r *Registry) Validate(formulas ...*formula.Formula) error {
	var errs []string
	check := func(f *formula.Formula, src formula.Source) {
		if !r.registered(src.Strategy) {
			errs = append(errs, fmt.Sprintf("formula '%s': no fetch strategy registered for '%s'", f.Name, src.Strategy))
		}
	}
	for _, f := range formulas {
		for _, entry := range f.Sources {
			check(f, entry.Source)
		}
		if f.Head != nil {
			check(f, *f.Head)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
