package stm

import (
	"github.com/pingcap/errors"

	"github.com/tinystm/tinystm/stm/locktable"
)

// Abort errors. All are non-fatal: the transaction's effects are rolled back
// and the surrounding retry loop runs the block again. They are preallocated
// because aborts are control flow on the hot path, not exceptional events.
var (
	// ErrLockedByOther: a read or write observed a slot owned by another
	// thread.
	ErrLockedByOther = locktable.ErrLockedByOther

	// ErrExtendFailure: a read saw a version beyond the snapshot and the
	// snapshot could not be extended.
	ErrExtendFailure = errors.New("stm: fail on extend")

	// ErrWriteAfterRead: a write found a newer committed version of a
	// location already in the read set.
	ErrWriteAfterRead = errors.New("stm: fail on write (read previous version)")

	// ErrReadOnlyHint: the first write in a transaction that started under
	// the read-only hint. The hint has been flipped; the retry takes the
	// read-write path.
	ErrReadOnlyHint = errors.New("stm: fail on write (read-only hint was set)")
)

// IsAbort reports whether err is one of the transaction abort errors, as
// opposed to an error from user code inside the atomic block.
func IsAbort(err error) bool {
	switch errors.Cause(err) {
	case ErrLockedByOther, ErrExtendFailure, ErrWriteAfterRead, ErrReadOnlyHint:
		return true
	}
	return false
}

func abortCause(err error) string {
	switch errors.Cause(err) {
	case ErrLockedByOther:
		return "locked"
	case ErrExtendFailure:
		return "extend"
	case ErrWriteAfterRead:
		return "write_after_read"
	case ErrReadOnlyHint:
		return "read_only_hint"
	}
	return "unknown"
}
