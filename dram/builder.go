package dram

import (
	"fmt"
	"log"

	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/addressmapping"
	"github.com/sarchlab/dramsim/dram/internal/arena"
	"github.com/sarchlab/dramsim/dram/internal/cmdq"
	"github.com/sarchlab/dramsim/dram/internal/org"
	"github.com/sarchlab/dramsim/dram/internal/rank"
	"github.com/sarchlab/dramsim/dram/internal/signal"
	"github.com/sarchlab/dramsim/dram/internal/stats"
	"github.com/sarchlab/dramsim/hooking"
	"github.com/sarchlab/dramsim/queueing"
)

// Builder can build new memory systems.
type Builder struct {
	cfg   *config.Config
	hooks []hooking.Hook
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg: config.Default(),
	}
}

// WithConfig sets the parameters of the memory system. The configuration
// must not be modified after the system is built.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithHooks sets the hooks that are attached to every controller.
func (b Builder) WithHooks(hooks ...hooking.Hook) Builder {
	b.hooks = append([]hooking.Hook(nil), hooks...)
	return b
}

// WithAdditionalHooks adds a hook to attach to every controller.
func (b Builder) WithAdditionalHooks(h hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), h)
	return b
}

// Build builds a new memory system. An invalid configuration is fatal.
func (b Builder) Build(name string) *System {
	if err := b.cfg.Validate(); err != nil {
		log.Panicf("cannot build memory system %s: %v", name, err)
	}

	if !addressmapping.IsPowerOfTwo(uint64(b.cfg.NumChans)) {
		log.Panicf("memory system %s: only a power of two number of "+
			"channels can be address mapped, got %d", name, b.cfg.NumChans)
	}

	s := &System{
		name:   name,
		cfg:    b.cfg,
		mapper: addressmapping.NewMapper(b.cfg),

		overflow: make([][]signal.Transaction, b.cfg.NumChans),
	}

	for ch := 0; ch < b.cfg.NumChans; ch++ {
		c := b.buildController(fmt.Sprintf("%s.Channel[%d]", name, ch), ch)
		c.mapper = s.mapper
		s.controllers = append(s.controllers, c)
	}

	return s
}

func (b Builder) buildController(name string, channel int) *Controller {
	cfg := b.cfg
	states := org.NewStateTable(cfg)

	c := &Controller{
		name:         name,
		channel:      channel,
		cfg:          cfg,
		bankStates:   states,
		cmdQueue:     cmdq.NewCommandQueue(cfg, states),
		transactions: arena.New[signal.Transaction](),
		transQueue: queueing.NewFIFO[arena.Handle](
			name+".TransQueue", cfg.TransQueueDepth),
		pendingReads: queueing.NewFIFO[arena.Handle](
			name+".PendingReads", 0),
		returnQueue: queueing.NewFIFO[signal.Command](
			name+".ReturnQueue", 0),
		refreshCountdown: make([]int, cfg.NumRanks),
		powerDown:        make([]bool, cfg.NumRanks),
		counters:         stats.NewCounters(cfg),
	}

	perRank := int(cfg.RefreshPeriod / cfg.TCK / float64(cfg.NumRanks))
	for i := range c.refreshCountdown {
		c.refreshCountdown[i] = perRank * (i + 1)
	}

	for i := 0; i < cfg.NumRanks; i++ {
		c.ranks = append(c.ranks, rank.NewRank(i, cfg, c))
	}

	b.attachHooks(c)

	return c
}

func (b Builder) attachHooks(hookable hooking.Hookable) {
	for _, hook := range b.hooks {
		hookable.AcceptHook(hook)
	}
}
