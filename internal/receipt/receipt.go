// Package receipt records what was installed into a keg: the resolved
// version, options and dependency versions at build time and the verified
// source. A receipt is written once, together with its keg, and is never
// edited; a later install supersedes it with a new keg.
package receipt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/specialistvlad/brewgridgo/internal/formula"
	"gopkg.in/yaml.v3"
)

// FileName is the receipt's name inside a keg.
const FileName = "INSTALL_RECEIPT.yaml"

// Source is the verified origin of an install.
type Source struct {
	URL      string           `yaml:"url"`
	SHA256   string           `yaml:"sha256,omitempty"`
	Strategy formula.Strategy `yaml:"strategy"`
	Head     bool             `yaml:"head,omitempty"`
}

// Receipt is the record of one successful install.
type Receipt struct {
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version"`
	Options      []string          `yaml:"options"`
	Head         bool              `yaml:"head,omitempty"`
	Dependencies map[string]string `yaml:"dependencies"`
	Source       Source            `yaml:"source"`
	BuildID      string            `yaml:"build_id"`
	Platform     string            `yaml:"platform"`
	InstalledAt  time.Time         `yaml:"installed_at"`
}

// Path returns the receipt location inside prefix.
func Path(prefix string) string {
	return filepath.Join(prefix, FileName)
}

// Write persists r into prefix. It fails if a receipt is already present.
func Write(prefix string, r *Receipt) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding receipt for %s: %w", r.Name, err)
	}
	f, err := os.OpenFile(Path(prefix), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("writing receipt for %s: %w", r.Name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing receipt for %s: %w", r.Name, err)
	}
	return f.Close()
}

// Read loads the receipt stored in prefix. A missing receipt yields an
// error matching fs.ErrNotExist.
func Read(prefix string) (*Receipt, error) {
	data, err := os.ReadFile(Path(prefix))
	if err != nil {
		return nil, err
	}
	var r Receipt
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", Path(prefix), err)
	}
	if r.Dependencies == nil {
		r.Dependencies = map[string]string{}
	}
	return &r, nil
}

// Wanted is what an install would produce now; it is compared with the
// current receipt to decide whether a rebuild is needed.
type Wanted struct {
	Version      string
	Options      formula.BuildOptions
	Dependencies map[string]string
}

// Drift lists the differences between r and w. An empty result means the
// installed keg is up to date.
func (r *Receipt) Drift(w Wanted) []string {
	var diffs []string
	if r.Version != w.Version {
		diffs = append(diffs, fmt.Sprintf("version %s -> %s", r.Version, w.Version))
	}
	if r.Head != w.Options.Head {
		diffs = append(diffs, fmt.Sprintf("head %t -> %t", r.Head, w.Options.Head))
	}
	if want := w.Options.EnabledNames(); !slices.Equal(sorted(r.Options), want) {
		diffs = append(diffs, fmt.Sprintf("options %v -> %v", sorted(r.Options), want))
	}

	names := make(map[string]struct{}, len(r.Dependencies)+len(w.Dependencies))
	for n := range r.Dependencies {
		names[n] = struct{}{}
	}
	for n := range w.Dependencies {
		names[n] = struct{}{}
	}
	keys := make([]string, 0, len(names))
	for n := range names {
		keys = append(keys, n)
	}
	sort.Strings(keys)
	for _, n := range keys {
		had, okHad := r.Dependencies[n]
		want, okWant := w.Dependencies[n]
		switch {
		case !okHad:
			diffs = append(diffs, fmt.Sprintf("dependency %s added", n))
		case !okWant:
			diffs = append(diffs, fmt.Sprintf("dependency %s removed", n))
		case had != want:
			diffs = append(diffs, fmt.Sprintf("dependency %s %s -> %s", n, had, want))
		}
	}
	return diffs
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	sort.Strings(out)
	return out
}

// IsNotExist reports whether err means that no receipt was found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
