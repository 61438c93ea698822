package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/hcl"
	"github.com/stretchr/testify/require"
)

// WriteFiles writes files, keyed by relative path, below a fresh temporary
// directory and returns that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

// LoadFormulas parses formula HCL sources and validates them.
func LoadFormulas(t *testing.T, files map[string]string) map[string]*formula.Formula {
	t.Helper()
	dir := WriteFiles(t, files)
	model, err := hcl.NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	formulas, err := formula.FromModel(model)
	require.NoError(t, err)
	return formulas
}

// LoadFormula parses a single formula and returns it by name.
func LoadFormula(t *testing.T, name, src string) *formula.Formula {
	t.Helper()
	f, ok := LoadFormulas(t, map[string]string{name + ".hcl": src})[name]
	require.True(t, ok, "formula %q not found in fixture", name)
	return f
}
