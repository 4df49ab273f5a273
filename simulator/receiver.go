package simulator

import (
	"log"
)

// Receiver keeps track of the requests that were sent to the memory system
// and are not yet complete. Requests to the same address complete in the
// order they were sent.
type Receiver struct {
	pendingReads  map[uint64][]uint64
	pendingWrites map[uint64][]uint64
	count         int

	readsDone  uint64
	writesDone uint64
}

// NewReceiver creates an empty receiver.
func NewReceiver() *Receiver {
	return &Receiver{
		pendingReads:  make(map[uint64][]uint64),
		pendingWrites: make(map[uint64][]uint64),
	}
}

// AddPending records a request to addr sent at the given CPU cycle.
func (r *Receiver) AddPending(isWrite bool, addr, cycle uint64) {
	if isWrite {
		r.pendingWrites[addr] = append(r.pendingWrites[addr], cycle)
	} else {
		r.pendingReads[addr] = append(r.pendingReads[addr], cycle)
	}

	r.count++
}

// ReadComplete is the read callback of the memory system.
func (r *Receiver) ReadComplete(channel int, addr, cycle uint64) {
	r.complete(r.pendingReads, "read", channel, addr, cycle)
	r.readsDone++
}

// WriteComplete is the write callback of the memory system.
func (r *Receiver) WriteComplete(channel int, addr, cycle uint64) {
	r.complete(r.pendingWrites, "write", channel, addr, cycle)
	r.writesDone++
}

func (r *Receiver) complete(
	pending map[uint64][]uint64,
	kind string,
	channel int,
	addr, cycle uint64,
) {
	list := pending[addr]
	if len(list) == 0 {
		log.Panicf("channel %d completed a %s to 0x%x at cycle %d, "+
			"but no such %s is pending", channel, kind, addr, cycle, kind)
	}

	if len(list) == 1 {
		delete(pending, addr)
	} else {
		pending[addr] = list[1:]
	}

	r.count--
}

// Pending returns the number of requests not yet complete.
func (r *Receiver) Pending() int {
	return r.count
}

// HasPending checks if any request is not complete.
func (r *Receiver) HasPending() bool {
	return r.count > 0
}

// Completed returns the number of completed reads and writes.
func (r *Receiver) Completed() (reads, writes uint64) {
	return r.readsDone, r.writesDone
}
