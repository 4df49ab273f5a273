package simulator

import (
	"log"

	"github.com/sarchlab/dramsim/cache"
	"github.com/sarchlab/dramsim/clock"
	"github.com/sarchlab/dramsim/dram"
)

// A Builder can build simulators.
type Builder struct {
	memory     *dram.System
	cache      *cache.Cache
	cpuHz      uint64
	cycleLimit uint64
	progress   ProgressTracker
	power      dram.PowerCallback
}

// MakeBuilder creates a builder with default parameters. By default the CPU
// runs at the DRAM frequency, there is no cache and no cycle limit.
func MakeBuilder() Builder {
	return Builder{}
}

// WithMemorySystem sets the memory system to drive.
func (b Builder) WithMemorySystem(m *dram.System) Builder {
	b.memory = m
	return b
}

// WithCache puts a cache in front of the memory system.
func (b Builder) WithCache(c *cache.Cache) Builder {
	b.cache = c
	return b
}

// WithCPUFrequency sets the frequency of the CPU clock in Hz. Zero runs the
// CPU at the DRAM frequency.
func (b Builder) WithCPUFrequency(hz uint64) Builder {
	b.cpuHz = hz
	return b
}

// WithCycleLimit stops the simulation after the given number of CPU cycles.
func (b Builder) WithCycleLimit(n uint64) Builder {
	b.cycleLimit = n
	return b
}

// WithProgressTracker reports the sent and completed requests to p.
func (b Builder) WithProgressTracker(p ProgressTracker) Builder {
	b.progress = p
	return b
}

// WithPowerCallback forwards the power reports of the memory system to f.
func (b Builder) WithPowerCallback(f dram.PowerCallback) Builder {
	b.power = f
	return b
}

// Build creates a simulator that reads accesses from source.
func (b Builder) Build(source RecordSource) *Simulator {
	if b.memory == nil {
		log.Panic("simulator needs a memory system")
	}

	s := &Simulator{
		memory:     b.memory,
		cache:      b.cache,
		source:     source,
		receiver:   NewReceiver(),
		progress:   b.progress,
		cycleLimit: b.cycleLimit,
	}

	s.chain = clock.NewRatioChain(
		b.cpuHz, b.memory.Config().ClockHz(),
		s.tick, b.memory.Update,
	)

	b.memory.RegisterCallbacks(s.readDone, s.writeDone, b.power)

	return s
}
