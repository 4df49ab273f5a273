// Package arena provides slot storage addressed by handles.
//
// An Arena owns its values. Queues and lists hold Handles instead of
// pointers, so the arena is the single place a value can be created or
// released. A handle whose slot has been released and reused is detected by
// its generation and causes a panic.
package arena

import (
	"fmt"
	"log"
)

// Handle refers to a value stored in an Arena. The zero Handle refers to
// nothing.
type Handle struct {
	index      uint32
	generation uint32
}

// IsValid returns false for the zero Handle.
func (h Handle) IsValid() bool {
	return h.generation != 0
}

func (h Handle) String() string {
	if !h.IsValid() {
		return "nil"
	}

	return fmt.Sprintf("#%d.%d", h.index, h.generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Arena stores values of type T.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc stores v and returns its handle.
func (a *Arena[T]) Alloc(v T) Handle {
	var index uint32

	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}

	s := &a.slots[index]
	s.value = v
	s.generation++
	s.live = true
	a.live++

	return Handle{index: index, generation: s.generation}
}

// Get returns a pointer to the value of h. The pointer stays valid until h is
// freed.
func (a *Arena[T]) Get(h Handle) *T {
	return &a.slot(h).value
}

// Free releases the value of h.
func (a *Arena[T]) Free(h Handle) {
	s := a.slot(h)

	var zero T

	s.value = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.live--
}

// Contains reports whether h refers to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	if !h.IsValid() || int(h.index) >= len(a.slots) {
		return false
	}

	s := &a.slots[h.index]

	return s.live && s.generation == h.generation
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.live
}

func (a *Arena[T]) slot(h Handle) *slot[T] {
	if !a.Contains(h) {
		log.Panicf("stale or invalid handle %s", h)
	}

	return &a.slots[h.index]
}
