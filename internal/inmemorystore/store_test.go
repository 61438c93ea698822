package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Unknown formulas are requested.
	status, err := s.GetStatus(ctx, "zstd")
	require.NoError(t, err)
	assert.Equal(t, node.StatusRequested, status)

	require.NoError(t, s.Init(ctx, "zstd"))
	require.NoError(t, s.SetStatus(ctx, "zstd", node.StatusResolved))
	require.NoError(t, s.SetStatus(ctx, "zstd", node.StatusFetched))

	status, err = s.GetStatus(ctx, "zstd")
	require.NoError(t, err)
	assert.Equal(t, node.StatusFetched, status)
}

func TestSetStatus_IllegalTransition(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, "zstd"))

	err := s.SetStatus(ctx, "zstd", node.StatusInstalled)
	var tErr *node.TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, node.StatusRequested, tErr.From)
	assert.Equal(t, node.StatusInstalled, tErr.To)

	status, err := s.GetStatus(ctx, "zstd")
	require.NoError(t, err)
	assert.Equal(t, node.StatusRequested, status, "a rejected transition leaves the state alone")

	// The same applies to formulas that were never initialized.
	require.Error(t, s.SetStatus(ctx, "lz4", node.StatusBuilt))
	status, err = s.GetStatus(ctx, "lz4")
	require.NoError(t, err)
	assert.Equal(t, node.StatusRequested, status)
}

func TestSetAndGetOutput(t *testing.T) {
	s := New()
	ctx := context.Background()

	output, err := s.GetOutput(ctx, "zstd")
	require.NoError(t, err)
	assert.Nil(t, output)

	expectedOutput := map[string]any{"version": "1.5.6"}
	require.NoError(t, s.SetOutput(ctx, "zstd", expectedOutput))

	retrievedOutput, err := s.GetOutput(ctx, "zstd")
	require.NoError(t, err)
	assert.Equal(t, expectedOutput, retrievedOutput)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()

	retrievedErr, err := s.GetError(ctx, "zstd")
	require.NoError(t, err)
	assert.Nil(t, retrievedErr)

	expectedErr := errors.New("a test error occurred")
	require.NoError(t, s.SetError(ctx, "zstd", expectedErr))

	retrievedErr, err = s.GetError(ctx, "zstd")
	require.NoError(t, err)
	assert.Equal(t, expectedErr, retrievedErr)
}

// TestStore_ConcurrentTransitions races many goroutines on the same
// transition; exactly one of them may win.
func TestStore_ConcurrentTransitions(t *testing.T) {
	s := New()
	ctx := context.Background()
	const numFormulas, numGoroutines = 20, 10

	for i := 0; i < numFormulas; i++ {
		require.NoError(t, s.Init(ctx, fmt.Sprintf("f%d", i)))
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < numFormulas; i++ {
		for g := 0; g < numGoroutines; g++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if err := s.SetStatus(ctx, name, node.StatusResolved); err == nil {
					wins.Add(1)
				}
				_ = s.SetOutput(ctx, name, name)
			}(fmt.Sprintf("f%d", i))
		}
	}
	wg.Wait()

	assert.Equal(t, int32(numFormulas), wins.Load())
	for i := 0; i < numFormulas; i++ {
		name := fmt.Sprintf("f%d", i)
		status, err := s.GetStatus(ctx, name)
		assert.NoError(t, err)
		assert.Equal(t, node.StatusResolved, status)
		output, err := s.GetOutput(ctx, name)
		assert.NoError(t, err)
		assert.Equal(t, name, output)
	}
}
