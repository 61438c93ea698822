package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertFinishedBefore checks that the build of dep ended before the build
// of dependent started.
func AssertFinishedBefore(t *testing.T, b *RecordingBuilder, dep, dependent string) {
	t.Helper()
	d, ok := b.Record(dep)
	require.True(t, ok, "%s was not built", dep)
	n, ok := b.Record(dependent)
	require.True(t, ok, "%s was not built", dependent)
	require.False(t, n.Start.Before(d.End),
		"%s started at %s, before its dependency %s finished at %s", dependent, n.Start, dep, d.End)
}
