package locktable

import (
	"encoding/binary"
	"unsafe"

	"github.com/dgryski/go-farm"
	"github.com/pingcap/errors"
	"go.uber.org/atomic"
)

// ErrLockedByOther is returned when an operation finds a slot owned by a
// different thread. The caller is expected to abort its transaction
// immediately; there is no waiting and no back-off.
var ErrLockedByOther = errors.New("locktable: slot is owned by another thread")

// Table maps memory locations to versioned 64-bit lock words. A word >= 0 is
// a free slot whose last committed version is the word itself; a word < 0 is
// owned by the thread with id -word. The sign carries the whole state so a
// single atomic load classifies a slot.
//
// The table is fixed-size and array-backed; slots are never created or
// destroyed, only their words change.
type Table struct {
	words []atomic.Int64
	mask  uint64
}

// New creates a table with the given number of slots. size must be a power
// of two so that hashes reduce to a slot with a single mask.
func New(size int) *Table {
	if size <= 0 || size&(size-1) != 0 {
		panic("locktable: size must be a power of two")
	}
	return &Table{
		words: make([]atomic.Int64, size),
		mask:  uint64(size - 1),
	}
}

// Size returns the number of slots.
func (t *Table) Size() int {
	return len(t.words)
}

// Hash maps a memory location, identified by object pointer and field
// offset, to a slot. The result is stable for the life of the object: the
// runtime does not move heap objects, so the address is a stable identity.
func (t *Table) Hash(obj unsafe.Pointer, offset uintptr) int {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(uintptr(obj)))
	binary.LittleEndian.PutUint64(buf[8:], uint64(offset))
	return int(farm.Fingerprint64(buf[:]) & t.mask)
}

// Owned reports whether a lock word is owner-encoded.
func Owned(word int64) bool {
	return word < 0
}

// Owner returns the thread id encoded in an owned lock word.
func Owner(word int64) int64 {
	return -word
}

// CheckLock loads the slot's word. It returns the word when the slot is free
// or already owned by self, and ErrLockedByOther when another thread owns
// it. It never blocks.
func (t *Table) CheckLock(slot int, self int64) (int64, error) {
	word := t.words[slot].Load()
	if word >= 0 || -word == self {
		return word, nil
	}
	return 0, ErrLockedByOther
}

// Lock transitions a free slot to owned-by-self with a single CAS and
// returns the previous free word. If self already owns the slot the owned
// word is returned unchanged. Any other outcome, including losing the CAS
// race, is ErrLockedByOther.
func (t *Table) Lock(slot int, self int64) (int64, error) {
	word := t.words[slot].Load()
	if word < 0 {
		if -word == self {
			return word, nil
		}
		return 0, ErrLockedByOther
	}
	if !t.words[slot].CAS(word, -self) {
		return 0, ErrLockedByOther
	}
	return word, nil
}

// SetAndReleaseLock stores word into the slot, releasing it. The caller must
// own the slot; word is a new version on commit or the saved previous word
// on rollback.
func (t *Table) SetAndReleaseLock(slot int, word int64) {
	t.words[slot].Store(word)
}
