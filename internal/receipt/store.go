package receipt

import (
	"fmt"
	"os"

	"github.com/specialistvlad/brewgridgo/internal/layout"
)

// Store finds the receipts of currently linked installs.
type Store struct {
	Layout layout.Layout
}

// Current returns the receipt of the keg that opt/<name> points at.
func (s Store) Current(name string) (*Receipt, error) {
	prefix, err := os.Readlink(s.Layout.Opt(name))
	if err != nil {
		return nil, err
	}
	r, err := Read(prefix)
	if err != nil {
		return nil, fmt.Errorf("reading receipt of %s: %w", name, err)
	}
	return r, nil
}

// Versions returns the installed version of every name that has a linked
// keg. Names without one are omitted.
func (s Store) Versions(names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		if r, err := s.Current(n); err == nil {
			out[n] = r.Version
		}
	}
	return out
}
