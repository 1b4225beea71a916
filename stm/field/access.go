package field

import "unsafe"

// ReadAccess records one validated read: the location, its lock-table slot
// and the free lock word observed when the read was made. A transaction's
// read set is an insertion-ordered sequence of these; duplicates are kept.
type ReadAccess struct {
	Field
	Slot int
	Lock int64
}

// WriteAccess records one pending write. All writes of a transaction that
// hash to the same slot share that slot's single ownership and are chained
// through Next; PrevLock is the free lock word the slot held when the
// transaction first acquired it, restored on rollback.
type WriteAccess struct {
	Field
	Slot     int
	Type     Type
	PrevLock int64
	Next     *WriteAccess

	bits uint64
	ptr  unsafe.Pointer
}

// NewWriteAccess creates an unlinked write access.
func NewWriteAccess(obj unsafe.Pointer, offset uintptr, typ Type, bits uint64, ptr unsafe.Pointer, slot int, prevLock int64) *WriteAccess {
	return &WriteAccess{
		Field:    Field{Obj: obj, Offset: offset},
		Slot:     slot,
		Type:     typ,
		PrevLock: prevLock,
		bits:     bits,
		ptr:      ptr,
	}
}

// Value returns the pending value.
func (w *WriteAccess) Value() (uint64, unsafe.Pointer) {
	return w.bits, w.ptr
}

// SetValue replaces the pending value; a later write to the same location in
// the same transaction coalesces into one entry.
func (w *WriteAccess) SetValue(bits uint64, ptr unsafe.Pointer) {
	w.bits = bits
	w.ptr = ptr
}

// Find walks the chain starting at w for an entry naming (obj, offset).
func (w *WriteAccess) Find(obj unsafe.Pointer, offset uintptr) *WriteAccess {
	for ; w != nil; w = w.Next {
		if w.Field.Equal(obj, offset) {
			return w
		}
	}
	return nil
}

// WriteField publishes the pending value to its target location.
func (w *WriteAccess) WriteField() {
	w.Field.Store(w.Type, w.bits, w.ptr)
}
