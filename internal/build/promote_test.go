package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromote(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	keg := filepath.Join(root, "Cellar", "zstd", "1.5.6")

	stage := func(content string) string {
		dir := filepath.Join(root, ".staging", content)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "version"), []byte(content), 0o644))
		return dir
	}
	readVersion := func() string {
		data, err := os.ReadFile(filepath.Join(keg, "version"))
		require.NoError(t, err)
		return string(data)
	}
	kegEntries := func() int {
		entries, err := os.ReadDir(filepath.Dir(keg))
		require.NoError(t, err)
		return len(entries)
	}

	p, err := Promote(ctx, stage("first"), keg)
	require.NoError(t, err)
	p.Commit(ctx)

	p, err = Promote(ctx, stage("second"), keg)
	require.NoError(t, err)
	assert.Equal(t, "second", readVersion(), "the new keg is in place before commit")
	assert.Equal(t, 2, kegEntries(), "the previous keg is kept aside until commit")
	p.Commit(ctx)
	assert.Equal(t, 1, kegEntries())

	t.Run("rollback restores the previous keg", func(t *testing.T) {
		p, err := Promote(ctx, stage("third"), keg)
		require.NoError(t, err)
		p.Rollback(ctx)
		assert.Equal(t, "second", readVersion())
		assert.Equal(t, 1, kegEntries())
	})
}

func TestPromote_FailureRestoresPreviousKeg(t *testing.T) {
	root := t.TempDir()
	keg := filepath.Join(root, "Cellar", "zstd", "1.5.6")
	require.NoError(t, os.MkdirAll(keg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(keg, "version"), []byte("old"), 0o644))

	_, err := Promote(context.Background(), filepath.Join(root, "missing"), keg)
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(keg, "version"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(filepath.Dir(keg))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLink_Replaces(t *testing.T) {
	root := t.TempDir()
	link := filepath.Join(root, "opt", "zstd")

	require.NoError(t, Link("/kegs/one", link))
	require.NoError(t, Link("/kegs/two", link))

	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "/kegs/two", target)

	entries, err := os.ReadDir(filepath.Dir(link))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary links remain")
}
