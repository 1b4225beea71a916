// Package intset implements a sorted linked-list integer set whose every
// node access goes through the transaction context. It is the standard STM
// workload: concurrent Add, Remove and Contains from any number of threads
// stay linearizable with no locking in the data structure itself.
package intset

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/tinystm/tinystm/stm"
)

// One atomic block id per operation, so the read-only hint can learn that
// Contains never writes while Add and Remove do.
const (
	blockAdd = iota
	blockRemove
	blockContains
)

type node struct {
	value int64
	next  unsafe.Pointer // *node
}

var (
	offValue = unsafe.Offsetof(node{}.value)
	offNext  = unsafe.Offsetof(node{}.next)
)

// IntSet is a sorted singly linked list with sentinel head and tail nodes.
type IntSet struct {
	head *node
}

// New creates an empty set.
func New() *IntSet {
	tail := &node{value: math.MaxInt64}
	head := &node{value: math.MinInt64, next: unsafe.Pointer(tail)}
	return &IntSet{head: head}
}

func readValue(ctx *stm.Context, n *node) (int64, error) {
	p := unsafe.Pointer(n)
	if err := ctx.BeforeReadAccess(p, offValue); err != nil {
		return 0, err
	}
	return ctx.AddReadAccessInt64(p, atomic.LoadInt64(&n.value), offValue)
}

func readNext(ctx *stm.Context, n *node) (*node, error) {
	p := unsafe.Pointer(n)
	if err := ctx.BeforeReadAccess(p, offNext); err != nil {
		return nil, err
	}
	next, err := ctx.AddReadAccessPointer(p, atomic.LoadPointer(&n.next), offNext)
	return (*node)(next), err
}

func writeNext(ctx *stm.Context, n *node, next *node) error {
	return ctx.AddWriteAccessPointer(unsafe.Pointer(n), unsafe.Pointer(next), offNext)
}

// find positions the traversal at the first node whose value is >= value,
// returning that node and its predecessor.
func (s *IntSet) find(ctx *stm.Context, value int64) (prev, next *node, v int64, err error) {
	prev = s.head
	next, err = readNext(ctx, prev)
	if err != nil {
		return nil, nil, 0, err
	}
	for {
		v, err = readValue(ctx, next)
		if err != nil {
			return nil, nil, 0, err
		}
		if v >= value {
			return prev, next, v, nil
		}
		prev = next
		next, err = readNext(ctx, prev)
		if err != nil {
			return nil, nil, 0, err
		}
	}
}

// Add inserts value, returning false when it was already present.
func (s *IntSet) Add(ctx *stm.Context, value int64) (bool, error) {
	var added bool
	err := ctx.Atomic(blockAdd, func(ctx *stm.Context) error {
		prev, next, v, err := s.find(ctx, value)
		if err != nil {
			return err
		}
		added = v != value
		if !added {
			return nil
		}
		n := &node{value: value, next: unsafe.Pointer(next)}
		return writeNext(ctx, prev, n)
	})
	return added, err
}

// Remove deletes value, returning false when it was not present.
func (s *IntSet) Remove(ctx *stm.Context, value int64) (bool, error) {
	var removed bool
	err := ctx.Atomic(blockRemove, func(ctx *stm.Context) error {
		prev, next, v, err := s.find(ctx, value)
		if err != nil {
			return err
		}
		removed = v == value
		if !removed {
			return nil
		}
		after, err := readNext(ctx, next)
		if err != nil {
			return err
		}
		return writeNext(ctx, prev, after)
	})
	return removed, err
}

// Contains reports whether value is in the set.
func (s *IntSet) Contains(ctx *stm.Context, value int64) (bool, error) {
	var found bool
	err := ctx.Atomic(blockContains, func(ctx *stm.Context) error {
		_, _, v, err := s.find(ctx, value)
		if err != nil {
			return err
		}
		found = v == value
		return nil
	})
	return found, err
}

// Size counts the elements; it is itself one transaction.
func (s *IntSet) Size(ctx *stm.Context) (int, error) {
	var size int
	err := ctx.Atomic(blockContains, func(ctx *stm.Context) error {
		size = 0
		n, err := readNext(ctx, s.head)
		if err != nil {
			return err
		}
		for {
			v, err := readValue(ctx, n)
			if err != nil {
				return err
			}
			if v == math.MaxInt64 {
				return nil
			}
			size++
			if n, err = readNext(ctx, n); err != nil {
				return err
			}
		}
	})
	return size, err
}
