// Package queueing provides the bounded queues that hold transactions
// inside a memory controller.
package queueing

import (
	"log"

	"github.com/sarchlab/dramsim/hooking"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element leaves the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

// A Buffer is a queue whose fill level can be inspected without knowing
// what it holds.
type Buffer interface {
	hooking.Hookable

	Name() string
	CanPush() bool
	Capacity() int
	Size() int
	Clear()
}

// FIFO is a first-in-first-out Buffer of T. A FIFO with a capacity of zero
// is unbounded.
type FIFO[T any] struct {
	hooking.HookableBase

	name     string
	capacity int
	elements []T
}

// NewFIFO creates an empty FIFO.
func NewFIFO[T any](name string, capacity int) *FIFO[T] {
	return &FIFO[T]{name: name, capacity: capacity}
}

// Name returns the name of the buffer.
func (b *FIFO[T]) Name() string {
	return b.name
}

// CanPush returns true if one more element fits.
func (b *FIFO[T]) CanPush() bool {
	return b.capacity <= 0 || len(b.elements) < b.capacity
}

// Push appends e. Pushing to a full buffer panics.
func (b *FIFO[T]) Push(e T) {
	if !b.CanPush() {
		log.Panicf("buffer %s overflow", b.name)
	}

	b.elements = append(b.elements, e)
	b.invoke(HookPosBufPush, e)
}

// Pop removes the oldest element.
func (b *FIFO[T]) Pop() (T, bool) {
	var e T
	if len(b.elements) == 0 {
		return e, false
	}

	return b.RemoveAt(0), true
}

// Peek returns the oldest element without removing it.
func (b *FIFO[T]) Peek() (T, bool) {
	var e T
	if len(b.elements) == 0 {
		return e, false
	}

	return b.elements[0], true
}

// At returns the i-th oldest element.
func (b *FIFO[T]) At(i int) T {
	return b.elements[i]
}

// RemoveAt removes the i-th oldest element and keeps the order of the rest.
func (b *FIFO[T]) RemoveAt(i int) T {
	e := b.elements[i]

	var zero T
	copy(b.elements[i:], b.elements[i+1:])
	b.elements[len(b.elements)-1] = zero
	b.elements = b.elements[:len(b.elements)-1]

	b.invoke(HookPosBufPop, e)

	return e
}

// Elements returns the buffered elements, oldest first. The slice must not
// be modified.
func (b *FIFO[T]) Elements() []T {
	return b.elements
}

// Capacity returns the capacity of the buffer, or 0 if it is unbounded.
func (b *FIFO[T]) Capacity() int {
	return b.capacity
}

// Size returns the number of buffered elements.
func (b *FIFO[T]) Size() int {
	return len(b.elements)
}

// Clear drops every element.
func (b *FIFO[T]) Clear() {
	b.elements = nil
}

func (b *FIFO[T]) invoke(pos *hooking.HookPos, e T) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   e,
	})
}
