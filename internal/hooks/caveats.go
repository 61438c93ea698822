package hooks

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// CaveatInput is what caveat assessment looks at.
type CaveatInput struct {
	MajorVersion string
	Dirs         DataDirs
	// Marker is the file in a data directory holding the version that
	// created it.
	Marker string
}

// CaveatState is the assessed situation of an install's data directory.
type CaveatState struct {
	DataDir       string
	Versioned     string
	Legacy        string
	LegacyExists  bool
	LegacyVersion string
	// MigrationAdvised is set when the legacy directory was created by the
	// same major version and can be moved to the versioned location.
	MigrationAdvised bool
}

// AssessCaveats inspects the data directories. It only reads.
func AssessCaveats(fs afero.Fs, in CaveatInput) CaveatState {
	st := CaveatState{
		DataDir:      in.Dirs.Effective(),
		Versioned:    in.Dirs.Versioned,
		Legacy:       in.Dirs.Legacy,
		LegacyExists: in.Dirs.LegacyExists,
	}
	if !st.LegacyExists || in.Marker == "" {
		return st
	}
	data, err := afero.ReadFile(fs, filepath.Join(st.Legacy, in.Marker))
	if err != nil {
		return st
	}
	st.LegacyVersion = strings.TrimSpace(string(data))
	st.MigrationAdvised = st.LegacyVersion != "" && st.LegacyVersion == in.MajorVersion
	return st
}

// RenderCaveats formats the migration hint, if any, followed by the
// formula's own caveat text. It never moves anything.
func RenderCaveats(st CaveatState, text string) string {
	var b strings.Builder
	if st.MigrationAdvised {
		b.WriteString("Previous versions of this formula shared the same data directory.\n\n")
		b.WriteString("You can migrate to a versioned data directory by running:\n")
		fmt.Fprintf(&b, "  mv -v %q %q\n\n", st.Legacy, st.Versioned)
		b.WriteString("(Make sure the server is stopped before executing this command)\n\n")
	}
	b.WriteString(strings.TrimRight(text, "\n"))
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// Caveats evaluates and renders the caveats of t. It returns "" when there
// is nothing to say.
func (r Runtime) Caveats(t Target) (string, error) {
	f := t.Formula
	scope, dirs, err := r.scope(t)
	if err != nil {
		return "", err
	}
	text, err := r.Evaluator.String(f.Caveats, scope)
	if err != nil {
		return "", fmt.Errorf("evaluating caveats of %s: %w", f.Name, err)
	}

	in := CaveatInput{MajorVersion: f.MajorVersion(), Dirs: dirs}
	if f.PostInstall != nil {
		in.Marker = f.PostInstall.Marker
	}
	st := AssessCaveats(r.fs(), in)
	if !st.MigrationAdvised && strings.TrimSpace(text) == "" {
		return "", nil
	}
	return RenderCaveats(st, text), nil
}
