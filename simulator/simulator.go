// Package simulator drives a memory system with a trace of memory accesses.
package simulator

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/dramsim/cache"
	"github.com/sarchlab/dramsim/clock"
	"github.com/sarchlab/dramsim/dram"
	"github.com/sarchlab/dramsim/trace"
)

// RecordSource provides the accesses to simulate. It returns io.EOF when
// there are no more accesses.
type RecordSource interface {
	Next() (trace.Record, error)
}

// A ProgressTracker is told about requests as they are sent and completed.
type ProgressTracker interface {
	IncrementInProgress(amount uint64)
	MoveInProgressToFinished(amount uint64)
}

// Stats summarizes a run.
type Stats struct {
	CPUCycles  uint64
	DRAMCycles uint64

	// Records is the number of trace records consumed.
	Records uint64

	// Requests is the number of transactions sent to the memory system,
	// write-backs included.
	Requests   uint64
	CacheHits  uint64
	WriteBacks uint64

	ReadsDone  uint64
	WritesDone uint64
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"cpu cycles: %d, dram cycles: %d, records: %d, requests: %d, "+
			"cache hits: %d, write backs: %d, reads done: %d, writes done: %d",
		s.CPUCycles, s.DRAMCycles, s.Records, s.Requests,
		s.CacheHits, s.WriteBacks, s.ReadsDone, s.WritesDone)
}

// Simulator feeds the records of a trace to a memory system. A record is
// sent once the CPU clock reaches its cycle. If a cache is attached, only
// misses reach the memory system, together with the write-backs of dirty
// lines.
type Simulator struct {
	memory   *dram.System
	cache    *cache.Cache
	source   RecordSource
	receiver *Receiver
	chain    *clock.Chain
	progress ProgressTracker

	cycleLimit uint64

	current   *trace.Record
	probed    bool
	writeBack *uint64
	traceDone bool
	err       error
	stats     Stats

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex
	stateLock    sync.Mutex
}

// Memory returns the simulated memory system.
func (s *Simulator) Memory() *dram.System {
	return s.memory
}

// Cache returns the attached cache. It is nil if there is none.
func (s *Simulator) Cache() *cache.Cache {
	return s.cache
}

// Receiver returns the tracker of outstanding requests.
func (s *Simulator) Receiver() *Receiver {
	return s.receiver
}

// CurrentCycle returns the number of CPU cycles simulated.
func (s *Simulator) CurrentCycle() uint64 {
	return s.chain.Root().Cycle()
}

// Stats returns the statistics of the run so far.
func (s *Simulator) Stats() Stats {
	st := s.stats
	st.CPUCycles = s.chain.Root().Cycle()
	st.DRAMCycles = s.memory.CurrentCycle()
	st.ReadsDone, st.WritesDone = s.receiver.Completed()

	return st
}

// Run simulates until the trace is consumed and every request is complete,
// or until the cycle limit is reached. A limit of zero means no limit.
func (s *Simulator) Run() error {
	for {
		s.pauseLock.Lock()
		s.stateLock.Lock()

		done := s.finished()
		if !done {
			s.chain.Tick()
		}

		s.stateLock.Unlock()
		s.pauseLock.Unlock()

		if done {
			return s.err
		}
	}
}

// Step simulates one CPU cycle. It returns false if the simulation has
// finished.
func (s *Simulator) Step() bool {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()

	if s.finished() {
		return false
	}

	s.chain.Tick()

	return true
}

// Err returns the error that stopped the simulation, if any.
func (s *Simulator) Err() error {
	return s.err
}

// Do runs f while the simulation is between two cycles. It is safe to call
// from another goroutine.
func (s *Simulator) Do(f func()) {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()

	f()
}

// Pause stops the simulation after the current cycle.
func (s *Simulator) Pause() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if s.isPaused {
		return
	}

	s.pauseLock.Lock()
	s.isPaused = true
}

// Continue resumes a paused simulation.
func (s *Simulator) Continue() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if !s.isPaused {
		return
	}

	s.pauseLock.Unlock()
	s.isPaused = false
}

func (s *Simulator) finished() bool {
	if s.err != nil {
		return true
	}

	if s.cycleLimit > 0 && s.chain.Root().Cycle() >= s.cycleLimit {
		return true
	}

	return s.traceDone && !s.receiver.HasPending()
}

// tick is called once per CPU cycle.
func (s *Simulator) tick() {
	if !s.sendWriteBack() {
		return
	}

	if s.current == nil && !s.fetch() {
		return
	}

	now := s.chain.Root().Cycle()
	if now < s.current.Cycle {
		return
	}

	if s.cache != nil && !s.probed {
		s.probed = true

		hit, evicted := s.cache.Access(s.current.Address, s.current.IsWrite, now)
		if evicted != nil {
			s.writeBack = evicted
			s.stats.WriteBacks++
		}

		if hit {
			s.stats.CacheHits++
			s.current = nil

			return
		}

		if !s.sendWriteBack() {
			return
		}
	}

	rec := s.current
	if !s.send(rec.IsWrite, rec.Address, rec.Data, rec.Len, rec.Cycle) {
		return
	}

	s.current = nil
}

func (s *Simulator) fetch() bool {
	if s.traceDone {
		return false
	}

	rec, err := s.source.Next()
	if errors.Is(err, io.EOF) {
		s.traceDone = true
		return false
	}

	if err != nil {
		s.err = err
		s.traceDone = true

		return false
	}

	s.stats.Records++
	s.current = &rec
	s.probed = false

	return true
}

// sendWriteBack tries to send the pending write-back. It returns true if
// nothing is left to write back.
func (s *Simulator) sendWriteBack() bool {
	if s.writeBack == nil {
		return true
	}

	if !s.send(true, *s.writeBack, nil, 0, s.chain.Root().Cycle()) {
		return false
	}

	s.writeBack = nil

	return true
}

func (s *Simulator) send(
	isWrite bool,
	addr uint64,
	data []byte,
	length int,
	traced uint64,
) bool {
	if !s.memory.AddSizedTransaction(isWrite, addr, data, length, traced) {
		return false
	}

	aligned := addr &^ uint64(s.memory.Config().TransDataBytes()-1)
	s.receiver.AddPending(isWrite, aligned, s.chain.Root().Cycle())
	s.stats.Requests++

	if s.progress != nil {
		s.progress.IncrementInProgress(1)
	}

	return true
}

func (s *Simulator) readDone(channel int, addr, cycle uint64) {
	s.receiver.ReadComplete(channel, addr, cycle)
	s.finish()
}

func (s *Simulator) writeDone(channel int, addr, cycle uint64) {
	s.receiver.WriteComplete(channel, addr, cycle)
	s.finish()
}

func (s *Simulator) finish() {
	if s.progress != nil {
		s.progress.MoveInProgressToFinished(1)
	}
}
