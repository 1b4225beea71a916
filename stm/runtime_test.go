package stm

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuntimeValidatesConfig(t *testing.T) {
	conf := testConfig()
	conf.LockTableBits = 0
	_, err := NewRuntime(conf)
	assert.Error(t, err)
}

func TestAtomicPropagatesUserError(t *testing.T) {
	rt := testRuntime(t)
	c := new(cell)
	errBoom := errors.New("boom")

	err := rt.Atomic(1, func(ctx *Context) error {
		if err := ctx.AddWriteAccessInt64(c.ptr(), 1, 0); err != nil {
			return err
		}
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	// The failed attempt left no trace.
	assert.Equal(t, int64(0), c.v)
	assert.Equal(t, int64(0), rt.Clock())
	slot := rt.locks.Hash(c.ptr(), 0)
	word, lockErr := rt.locks.CheckLock(slot, 0)
	require.NoError(t, lockErr)
	assert.Equal(t, int64(0), word)
}

func TestConcurrentCounter(t *testing.T) {
	const (
		threads    = 8
		increments = 500
	)
	rt := testRuntime(t)
	counter := new(cell)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := NewContext(rt)
			for j := 0; j < increments; j++ {
				err := ctx.Atomic(1, func(ctx *Context) error {
					v, err := tryReadCell(ctx, counter)
					if err != nil {
						return err
					}
					return ctx.AddWriteAccessInt64(counter.ptr(), v+1, 0)
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(threads*increments), atomic.LoadInt64(&counter.v))
	assert.Equal(t, int64(threads*increments), rt.Clock())
}

func TestConcurrentDisjointWriters(t *testing.T) {
	const threads = 4
	rt := testRuntime(t)
	cells := newDistinctCells(rt, threads)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(c *cell) {
			defer wg.Done()
			ctx := NewContext(rt)
			for j := 0; j < 100; j++ {
				err := ctx.Atomic(2, func(ctx *Context) error {
					v, err := tryReadCell(ctx, c)
					if err != nil {
						return err
					}
					return ctx.AddWriteAccessInt64(c.ptr(), v+1, 0)
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(cells[i])
	}
	wg.Wait()

	for _, c := range cells {
		assert.Equal(t, int64(100), c.v)
	}
	assert.Equal(t, int64(threads*100), rt.Clock())
}

func TestConcurrentReadersSeeConsistentPairs(t *testing.T) {
	// Writers keep two cells equal; readers must never observe a mixed
	// pair.
	rt := testRuntime(t)
	cells := newDistinctCells(rt, 2)
	a, b := cells[0], cells[1]

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx := NewContext(rt)
		for i := int64(1); i <= 3000; i++ {
			err := ctx.Atomic(3, func(ctx *Context) error {
				if err := ctx.AddWriteAccessInt64(a.ptr(), i, 0); err != nil {
					return err
				}
				return ctx.AddWriteAccessInt64(b.ptr(), i, 0)
			})
			if err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := NewContext(rt)
			for i := 0; i < 2000; i++ {
				var va, vb int64
				err := ctx.Atomic(4, func(ctx *Context) error {
					var err error
					if va, err = tryReadCell(ctx, a); err != nil {
						return err
					}
					vb, err = tryReadCell(ctx, b)
					return err
				})
				if err != nil {
					t.Error(err)
					return
				}
				if va != vb {
					t.Errorf("torn read: %d != %d", va, vb)
					return
				}
			}
		}()
	}

	wg.Wait()
}
