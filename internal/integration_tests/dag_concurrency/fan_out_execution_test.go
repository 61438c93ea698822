package integration_tests

import (
	"fmt"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: independent formulas are built at the same time
func TestDAGConcurrency_IndependentFormulas_BuildInParallel(t *testing.T) {
	// --- Arrange ---
	// Each leaf announces itself in a shared directory and then waits until
	// every leaf has done so. With serial execution the first leaf would
	// give up and fail.
	barrier := t.TempDir()
	leaves := []string{"liba", "libb", "libc"}
	g := newGrid(t)
	for _, name := range leaves {
		g.add(name, fmt.Sprintf(
			`touch '%[1]s/%[2]s'; i=0; while [ "$(ls '%[1]s' | wc -l)" -lt %[3]d ]; do i=$((i+1)); [ "$i" -gt 200 ] && exit 1; sleep 0.05; done; mkdir -p '${destdir}${include}' && touch '${destdir}${include}/%[2]s.h'`,
			barrier, name, len(leaves)))
	}
	g.add("app", `mkdir -p '${destdir}${bin}' && touch '${destdir}${bin}/app'`, leaves...)

	// --- Act ---
	statuses, err := g.install(t, len(leaves), "app")

	// --- Assert ---
	require.NoError(t, err)
	for _, name := range append(leaves, "app") {
		assert.Equal(t, node.StatusPostInstalled, statuses[name], "formula %s", name)
	}
}
