package stm

import (
	"unsafe"

	"github.com/ngaut/log"

	"github.com/tinystm/tinystm/stm/field"
)

// Context is the per-thread transaction state machine. A thread runs at most
// one transaction at a time; contexts must not be shared between threads.
//
// The intended call sequence per transaction is Init, then any number of
// BeforeReadAccess/AddReadAccess pairs and AddWriteAccess calls, then Commit
// or Rollback. Access operations return an abort error to unwind the block;
// the retry loop is the only place that inspects it.
type Context struct {
	rt *Runtime

	// id is this thread's lock-ownership identifier, unique among live
	// contexts.
	id int64

	readSet  []field.ReadAccess
	writeSet map[int]*field.WriteAccess

	blockID       int
	readWriteHint bool

	// Scratch carried from BeforeReadAccess to the paired AddReadAccess.
	readSlot int
	readLock int64

	// Snapshot window [startTime, endTime]: all reads so far are consistent
	// with the global clock anywhere in this range.
	startTime int64
	endTime   int64
}

// NewContext creates a context bound to rt for the calling thread.
func NewContext(rt *Runtime) *Context {
	return &Context{
		rt:            rt,
		id:            rt.threadID.Inc(),
		readSet:       make([]field.ReadAccess, 0, 1024),
		writeSet:      make(map[int]*field.WriteAccess, 32),
		readWriteHint: true,
	}
}

// Init starts a new transaction for the given atomic block.
func (ctx *Context) Init(blockID int) {
	log.Debug("init transaction")
	ctx.readSet = ctx.readSet[:0]
	for slot := range ctx.writeSet {
		delete(ctx.writeSet, slot)
	}
	ctx.startTime = ctx.rt.clock.Load()
	ctx.endTime = ctx.startTime
	ctx.readWriteHint = true
	if ctx.rt.conf.ReadOnlyHints {
		ctx.blockID = blockID
		ctx.readWriteHint = ctx.rt.hints.Get(blockID)
	}
}

// BeforeReadAccess is called before the program-visible load of a field. It
// records the location's slot and lock word for the paired AddReadAccess.
func (ctx *Context) BeforeReadAccess(obj unsafe.Pointer, offset uintptr) error {
	ctx.readSlot = ctx.rt.locks.Hash(obj, offset)
	lock, err := ctx.rt.locks.CheckLock(ctx.readSlot, ctx.id)
	if err != nil {
		return err
	}
	if lock < 0 && ctx.rt.conf.ReadLocked {
		// Read-locked mode: an owned slot is a conflict even when the owner
		// is this transaction.
		return ErrLockedByOther
	}
	ctx.readLock = lock
	return nil
}

// addReadAccess validates the observation made between BeforeReadAccess and
// this call. ok == true means the returned value supersedes the
// program-visible one (a pending write of this transaction, or a re-read
// after the slot moved); ok == false means the program-visible value was
// consistent and stands.
func (ctx *Context) addReadAccess(obj unsafe.Pointer, offset uintptr, typ field.Type) (bits uint64, ptr unsafe.Pointer, ok bool, err error) {
	for {
		if ctx.readLock < 0 {
			// We already own that slot; a pending write may shadow the
			// field.
			if w := ctx.writeSet[ctx.readSlot].Find(obj, offset); w != nil {
				bits, ptr = w.Value()
				return bits, ptr, true, nil
			}
			// We did not write this field. No read-set entry: holding the
			// lock keeps the slot valid through commit.
			return 0, nil, false, nil
		}

		for ctx.readLock <= ctx.endTime {
			// Re-read the lock word to check for a race with a writer.
			lock, err := ctx.rt.locks.CheckLock(ctx.readSlot, ctx.id)
			if err != nil {
				return 0, nil, false, err
			}
			if lock != ctx.readLock {
				ctx.readLock = lock
				if lock < 0 {
					break
				}
				bits, ptr = field.Field{Obj: obj, Offset: offset}.Load(typ)
				ok = true
				continue
			}
			// The observation is inside the snapshot window.
			if ctx.readWriteHint {
				ctx.readSet = append(ctx.readSet, field.ReadAccess{
					Field: field.Field{Obj: obj, Offset: offset},
					Slot:  ctx.readSlot,
					Lock:  lock,
				})
			}
			return bits, ptr, ok, nil
		}
		if ctx.readLock < 0 {
			continue
		}

		// The slot's version is beyond our snapshot; try to extend it.
		if !(ctx.readWriteHint && ctx.extend()) {
			return 0, nil, false, ErrExtendFailure
		}
	}
}

// addWriteAccess logs a pending write, acquiring the slot's lock.
func (ctx *Context) addWriteAccess(obj unsafe.Pointer, offset uintptr, typ field.Type, bits uint64, ptr unsafe.Pointer) error {
	if !ctx.readWriteHint {
		// First write on a block believed read-only: flip the hint so the
		// retry takes the read-write path, and abort.
		ctx.rt.hints.Insert(ctx.blockID)
		return ErrReadOnlyHint
	}

	slot := ctx.rt.locks.Hash(obj, offset)

	prev, err := ctx.rt.locks.Lock(slot, ctx.id)
	if err != nil {
		return err
	}

	if prev < 0 {
		// Re-entry on a slot we already own: coalesce into an existing
		// entry or append to the chain.
		head := ctx.writeSet[slot]
		w := head
		for {
			if w.Field.Equal(obj, offset) {
				w.SetValue(bits, ptr)
				return nil
			}
			if w.Next == nil {
				w.Next = field.NewWriteAccess(obj, offset, typ, bits, ptr, slot, head.PrevLock)
				return nil
			}
			w = w.Next
		}
	}

	if prev > ctx.endTime {
		// The location was committed by another transaction after our
		// snapshot began. If we read it earlier we can never see our own
		// snapshot again: restore the slot and abort.
		for i := range ctx.readSet {
			if ctx.readSet[i].Field.Equal(obj, offset) {
				ctx.rt.locks.SetAndReleaseLock(slot, prev)
				return ErrWriteAfterRead
			}
		}
		// Not in the read set: keep the lock, commit-time validation will
		// demand extension if needed.
	}

	ctx.writeSet[slot] = field.NewWriteAccess(obj, offset, typ, bits, ptr, slot, prev)
	return nil
}

// validate re-checks every entry of the read set against the lock table.
func (ctx *Context) validate() bool {
	for i := range ctx.readSet {
		r := &ctx.readSet[i]
		lock, err := ctx.rt.locks.CheckLock(r.Slot, ctx.id)
		if err != nil {
			return false
		}
		if lock >= 0 && lock != r.Lock {
			// Other version: cannot validate. A negative lock here is our
			// own later write and stays valid.
			return false
		}
	}
	return true
}

// extend tries to raise endTime to the current clock after revalidating the
// read set.
func (ctx *Context) extend() bool {
	now := ctx.rt.clock.Load()
	if ctx.validate() {
		ctx.endTime = now
		return true
	}
	return false
}

// Commit attempts to make the transaction's writes visible. It returns false
// when commit-time validation fails, in which case the transaction has been
// rolled back.
func (ctx *Context) Commit() bool {
	log.Debug("start to commit")

	if len(ctx.writeSet) != 0 {
		newClock := ctx.rt.clock.Inc()
		if newClock != ctx.startTime+1 && !ctx.validate() {
			// Some other transaction committed inside our window and we
			// cannot prove our reads still hold.
			ctx.Rollback()
			log.Debug("fail on commit")
			return false
		}
		// Write values and release locks. Each slot is released once, after
		// every value on its chain has been written, so no reader can
		// observe a partially published chain.
		for slot, w := range ctx.writeSet {
			for ; w != nil; w = w.Next {
				w.WriteField()
			}
			ctx.rt.locks.SetAndReleaseLock(slot, newClock)
		}
	}
	log.Debug("commit succeeded")
	return true
}

// Rollback releases every slot the transaction owns, restoring the lock
// word each slot held before acquisition, and discards the access logs.
// After Rollback the lock table is as if the transaction never ran.
func (ctx *Context) Rollback() {
	log.Debug("start to rollback")
	for slot, w := range ctx.writeSet {
		ctx.rt.locks.SetAndReleaseLock(slot, w.PrevLock)
		delete(ctx.writeSet, slot)
	}
	ctx.readSet = ctx.readSet[:0]
}
