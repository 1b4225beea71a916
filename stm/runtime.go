// Package stm implements a word-based software transactional memory runtime
// following the lazy snapshot algorithm with 64-bit version locks.
//
// Threads execute blocks of reads and writes as speculative transactions
// against a shared versioned lock table and a global commit clock. A
// transaction either commits atomically or aborts with no observable effect,
// in which case the caller retries. Writers take per-slot version locks at
// write time and publish at commit; readers never block, they validate each
// read against the transaction's snapshot window and extend the window when
// the world has moved on underneath them.
package stm

import (
	"github.com/tinystm/tinystm/stm/config"
	"github.com/tinystm/tinystm/stm/hints"
	"github.com/tinystm/tinystm/stm/locktable"
	"github.com/tinystm/tinystm/stm/metrics"

	"go.uber.org/atomic"
)

// Runtime bundles the process-wide state every transaction shares: the
// global commit clock, the versioned lock table and the read-only hint
// table. There are no hidden globals; tests construct their own runtime.
type Runtime struct {
	conf *config.Config

	// clock is advanced only by writing commits. All captured versions are
	// snapshots of it at some past commit.
	clock atomic.Int64

	// threadID hands out identifiers for lock ownership encoding. Ids start
	// at 1 so the owner encoding (negation) stays strictly negative.
	threadID atomic.Int64

	locks *locktable.Table
	hints *hints.Table
}

// NewRuntime creates a runtime from the given configuration.
func NewRuntime(conf *config.Config) (*Runtime, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &Runtime{
		conf:  conf,
		locks: locktable.New(conf.LockTableSize()),
		hints: hints.New(),
	}, nil
}

// Clock returns the current value of the global commit clock.
func (rt *Runtime) Clock() int64 {
	return rt.clock.Load()
}

// Atomic runs body as a transaction on a fresh context, retrying until it
// commits. Callers running many transactions on one thread should create a
// Context once and use Context.Atomic instead.
func (rt *Runtime) Atomic(blockID int, body func(*Context) error) error {
	return NewContext(rt).Atomic(blockID, body)
}

// Atomic runs body as a transaction, retrying on aborts until it commits.
// A non-abort error from body rolls the transaction back and is returned to
// the caller unchanged.
func (ctx *Context) Atomic(blockID int, body func(*Context) error) error {
	for {
		ctx.Init(blockID)
		err := body(ctx)
		if err == nil {
			if ctx.Commit() {
				metrics.TxnCounter.WithLabelValues("commit").Inc()
				return nil
			}
			// Commit already rolled back.
			metrics.TxnCounter.WithLabelValues("abort").Inc()
			metrics.AbortCounter.WithLabelValues("validation").Inc()
			continue
		}
		ctx.Rollback()
		if IsAbort(err) {
			metrics.TxnCounter.WithLabelValues("abort").Inc()
			metrics.AbortCounter.WithLabelValues(abortCause(err)).Inc()
			continue
		}
		return err
	}
}
