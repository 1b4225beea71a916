package intset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinystm/tinystm/stm"
	"github.com/tinystm/tinystm/stm/config"
)

func testRuntime(t *testing.T, hints bool) *stm.Runtime {
	conf := config.NewDefaultConfig()
	conf.LockTableBits = 12
	conf.ReadOnlyHints = hints
	rt, err := stm.NewRuntime(conf)
	require.NoError(t, err)
	return rt
}

func TestAddContainsRemove(t *testing.T) {
	rt := testRuntime(t, false)
	set := New()
	ctx := stm.NewContext(rt)

	for _, v := range []int64{5, 1, 9, 3} {
		added, err := set.Add(ctx, v)
		require.NoError(t, err)
		assert.True(t, added)
	}

	added, err := set.Add(ctx, 5)
	require.NoError(t, err)
	assert.False(t, added)

	for _, v := range []int64{1, 3, 5, 9} {
		found, err := set.Contains(ctx, v)
		require.NoError(t, err)
		assert.True(t, found, "missing %d", v)
	}
	found, err := set.Contains(ctx, 4)
	require.NoError(t, err)
	assert.False(t, found)

	size, err := set.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, size)

	removed, err := set.Remove(ctx, 3)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = set.Remove(ctx, 3)
	require.NoError(t, err)
	assert.False(t, removed)

	found, err = set.Contains(ctx, 3)
	require.NoError(t, err)
	assert.False(t, found)

	size, err = set.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size)
}

func TestReadOnlyHintLearnsContains(t *testing.T) {
	rt := testRuntime(t, true)
	set := New()
	ctx := stm.NewContext(rt)

	// The first Add aborts once to flip the block's hint, then retries
	// transparently inside Atomic.
	added, err := set.Add(ctx, 42)
	require.NoError(t, err)
	assert.True(t, added)

	// Contains never writes, so its block keeps the cheap read-only path.
	found, err := set.Contains(ctx, 42)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestConcurrentDisjointRanges(t *testing.T) {
	rt := testRuntime(t, false)
	set := New()

	const (
		threads   = 4
		perThread = 50
	)
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			ctx := stm.NewContext(rt)
			for v := base; v < base+perThread; v++ {
				if _, err := set.Add(ctx, v); err != nil {
					t.Error(err)
					return
				}
			}
		}(int64(i * 1000))
	}
	wg.Wait()

	ctx := stm.NewContext(rt)
	size, err := set.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, threads*perThread, size)

	for i := 0; i < threads; i++ {
		for v := int64(i * 1000); v < int64(i*1000+perThread); v++ {
			found, err := set.Contains(ctx, v)
			require.NoError(t, err)
			assert.True(t, found, "missing %d", v)
		}
	}
}

func TestConcurrentAddRemoveSameRange(t *testing.T) {
	rt := testRuntime(t, false)
	set := New()
	ctx := stm.NewContext(rt)

	// Seed with even values.
	for v := int64(0); v < 100; v += 2 {
		_, err := set.Add(ctx, v)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	// One goroutine adds the odds, one removes the evens.
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctx := stm.NewContext(rt)
		for v := int64(1); v < 100; v += 2 {
			if _, err := set.Add(ctx, v); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		ctx := stm.NewContext(rt)
		for v := int64(0); v < 100; v += 2 {
			if _, err := set.Remove(ctx, v); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()

	for v := int64(0); v < 100; v++ {
		found, err := set.Contains(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, v%2 == 1, found, "value %d", v)
	}
}
