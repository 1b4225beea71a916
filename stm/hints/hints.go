// Package hints tracks, per atomic block, whether any past execution of that
// block ever wrote. Blocks that never wrote can run a cheaper read-only path
// that skips read-set maintenance; the first write under that assumption
// flips the hint and aborts, and the retry takes the full path.
package hints

import (
	"sync"

	"go.uber.org/atomic"
)

// Table is a growable array of booleans keyed by atomic-block id. Readers
// load an immutable snapshot; Insert copies and republishes it under a
// mutex. A reader racing an insert may see a stale snapshot — the worst case
// is one extra spurious abort on that block, which self-corrects on retry.
type Table struct {
	mu   sync.Mutex
	snap atomic.Value // []bool
}

// New creates an empty table.
func New() *Table {
	t := new(Table)
	t.snap.Store([]bool{})
	return t
}

// Get returns the hint for id, false when id has never been inserted.
func (t *Table) Get(id int) bool {
	s := t.snap.Load().([]bool)
	return id >= 0 && id < len(s) && s[id]
}

// Insert marks id as read-write. Idempotent and safe against concurrent Get.
func (t *Table) Insert(id int) {
	if id < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.snap.Load().([]bool)
	if id < len(s) && s[id] {
		return
	}
	size := len(s)
	if size <= id {
		size = id + 1
	}
	next := make([]bool, size)
	copy(next, s)
	next[id] = true
	t.snap.Store(next)
}
