package build

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/stretchr/testify/assert"
)

func TestEnv_Environ(t *testing.T) {
	l := layout.New("/brew")
	base := map[string]string{"PATH": "/usr/bin", "LDFLAGS": "-Wl,-rpath,/x"}
	env := NewEnv(base, l, "icu4c", "zstd")

	got := env.Environ()
	sep := string(filepath.ListSeparator)
	assert.Equal(t, []string{
		"CPPFLAGS=-I" + filepath.FromSlash("/brew/opt/icu4c/include") + " -I" + filepath.FromSlash("/brew/opt/zstd/include"),
		"LDFLAGS=-L" + filepath.FromSlash("/brew/opt/icu4c/lib") + " -L" + filepath.FromSlash("/brew/opt/zstd/lib") + " -Wl,-rpath,/x",
		"PATH=" + strings.Join([]string{filepath.FromSlash("/brew/opt/icu4c/bin"), filepath.FromSlash("/brew/opt/zstd/bin"), "/usr/bin"}, sep),
		"PKG_CONFIG_PATH=" + filepath.FromSlash("/brew/opt/icu4c/lib/pkgconfig") + sep + filepath.FromSlash("/brew/opt/zstd/lib/pkgconfig"),
	}, got)
}

func TestEnv_Immutable(t *testing.T) {
	base := map[string]string{"A": "1"}
	env := NewEnv(base, layout.New("/brew"))
	changed := env.With("A", "2").WithVars(map[string]string{"B": "3"})

	assert.Equal(t, "1", env.Get("A"))
	assert.Equal(t, "", env.Get("B"))
	assert.Equal(t, "2", changed.Get("A"))
	assert.Equal(t, "3", changed.Get("B"))

	base["A"] = "mutated"
	assert.Equal(t, "1", env.Get("A"), "the base map is copied")
}

func TestEnv_NoDeps(t *testing.T) {
	env := NewEnv(nil, layout.New("/brew")).With("HOME", "/home/u")
	assert.Equal(t, []string{"HOME=/home/u"}, env.Environ())
}
