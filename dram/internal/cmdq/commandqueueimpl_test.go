package cmdq

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/addressmapping"
	"github.com/sarchlab/dramsim/dram/internal/arena"
	"github.com/sarchlab/dramsim/dram/internal/org"
	"github.com/sarchlab/dramsim/dram/internal/signal"
)

type issued struct {
	cycle uint64
	cmd   signal.Command
}

type harness struct {
	cfg    *config.Config
	states *org.StateTable
	q      *CommandQueueImpl
	txns   *arena.Arena[int]
	now    uint64
	log    []issued
}

func newHarness(cfg *config.Config) *harness {
	states := org.NewStateTable(cfg)

	return &harness{
		cfg:    cfg,
		states: states,
		q:      NewCommandQueue(cfg, states),
		txns:   arena.New[int](),
	}
}

// pair enqueues an activate and a column command for one transaction.
func (h *harness) pair(kind signal.CommandKind, rank, bank, row int) {
	txn := h.txns.Alloc(0)
	loc := addressmapping.Location{Rank: rank, Bank: bank, Row: row}

	h.q.Enqueue(signal.Command{
		Kind: signal.CmdKindActivate, Location: loc, Transaction: txn,
	})
	h.q.Enqueue(signal.Command{Kind: kind, Location: loc, Transaction: txn})
}

// step runs one cycle the way a memory controller does and checks that the
// popped command was allowed.
func (h *harness) step() {
	h.states.Age()

	cmd, ok := h.q.Pop(h.now)
	if ok {
		Expect(h.states.IsIssuable(&cmd, h.now)).To(BeTrue(),
			"cycle %d: %s", h.now, cmd)
		h.states.Apply(&cmd, h.now)
		h.log = append(h.log, issued{cycle: h.now, cmd: cmd})
	}

	h.now++
}

func (h *harness) run(cycles int) {
	for i := 0; i < cycles; i++ {
		h.step()
	}
}

func (h *harness) kinds() []signal.CommandKind {
	var kinds []signal.CommandKind
	for _, e := range h.log {
		kinds = append(kinds, e.cmd.Kind)
	}

	return kinds
}

var _ = Describe("CommandQueueImpl", func() {
	var (
		cfg *config.Config
		h   *harness
	)

	BeforeEach(func() {
		cfg = config.Default()
	})

	Context("capacity", func() {
		BeforeEach(func() {
			cfg.CmdQueueDepth = 4
			h = newHarness(cfg)
		})

		It("should accept commands while there is room", func() {
			Expect(h.q.IsEmpty(0)).To(BeTrue())
			Expect(h.q.HasRoomFor(4, 0, 0)).To(BeTrue())

			h.pair(signal.CmdKindRead, 0, 0, 1)

			Expect(h.q.IsEmpty(0)).To(BeFalse())
			Expect(h.q.IsEmpty(1)).To(BeTrue())
			Expect(h.q.Size(0, 3)).To(Equal(2))
			Expect(h.q.HasRoomFor(2, 0, 5)).To(BeTrue())
			Expect(h.q.HasRoomFor(3, 0, 5)).To(BeFalse())
		})

		It("should panic when enqueuing past the depth", func() {
			h.pair(signal.CmdKindRead, 0, 0, 1)
			h.pair(signal.CmdKindRead, 0, 1, 1)

			Expect(func() {
				h.q.Enqueue(signal.Command{Kind: signal.CmdKindActivate})
			}).To(Panic())
		})

		It("should keep per-bank queues apart", func() {
			cfg.QueuingStructure = config.PerRankPerBank
			h = newHarness(cfg)

			h.pair(signal.CmdKindRead, 0, 0, 1)
			h.pair(signal.CmdKindRead, 0, 0, 2)

			Expect(h.q.HasRoomFor(1, 0, 0)).To(BeFalse())
			Expect(h.q.HasRoomFor(4, 0, 1)).To(BeTrue())
			Expect(h.q.Commands(0, 0)).To(HaveLen(4))
		})
	})

	Context("open page", func() {
		BeforeEach(func() {
			h = newHarness(cfg)
		})

		It("should serve a write and a read to one row with one activate", func() {
			h.pair(signal.CmdKindWrite, 0, 0, 7)
			h.pair(signal.CmdKindRead, 0, 0, 7)

			h.run(100)

			Expect(h.kinds()[:3]).To(Equal([]signal.CommandKind{
				signal.CmdKindActivate,
				signal.CmdKindWrite,
				signal.CmdKindRead,
			}))
			Expect(h.q.IsEmpty(0)).To(BeTrue())
		})

		It("should count row hits and close the row after the cap", func() {
			cfg.TotalRowAccesses = 2
			h = newHarness(cfg)

			for i := 0; i < 4; i++ {
				h.pair(signal.CmdKindRead, 0, 0, 7)
			}

			h.run(400)

			acts := 0
			pres := 0
			for _, k := range h.kinds() {
				switch k {
				case signal.CmdKindActivate:
					acts++
				case signal.CmdKindPrecharge:
					pres++
				}
			}

			Expect(acts).To(Equal(2))
			Expect(pres).To(BeNumerically(">=", 1))
			Expect(h.q.IsEmpty(0)).To(BeTrue())
		})

		It("should precharge an open row nobody is waiting for", func() {
			h.pair(signal.CmdKindRead, 0, 0, 7)

			h.run(60)

			Expect(h.kinds()).To(Equal([]signal.CommandKind{
				signal.CmdKindActivate,
				signal.CmdKindRead,
				signal.CmdKindPrecharge,
			}))
			Expect(h.log[2].cycle).To(Equal(uint64(cfg.TRAS)))
		})

		It("should let an open bank finish before refreshing", func() {
			h.pair(signal.CmdKindRead, 0, 0, 7)
			h.step()
			h.q.NeedRefresh(0)

			Expect(h.q.RefreshPending(0)).To(BeTrue())
			Expect(h.q.RefreshPending(1)).To(BeFalse())

			h.run(60)

			Expect(h.kinds()).To(Equal([]signal.CommandKind{
				signal.CmdKindActivate,
				signal.CmdKindRead,
				signal.CmdKindPrecharge,
				signal.CmdKindRefresh,
			}))
			Expect(h.log[3].cycle).To(Equal(uint64(cfg.TRC)))
			Expect(h.q.RefreshPending(0)).To(BeFalse())
		})

		It("should not issue to a rank that waits for a refresh", func() {
			h.pair(signal.CmdKindRead, 0, 0, 7)
			h.q.NeedRefresh(0)

			h.step()

			Expect(h.kinds()).To(Equal([]signal.CommandKind{
				signal.CmdKindRefresh,
			}))
		})
	})

	Context("close page", func() {
		BeforeEach(func() {
			cfg.RowBufferPolicy = config.ClosePage
			h = newHarness(cfg)
		})

		It("should activate for every access", func() {
			h.pair(signal.CmdKindReadPrecharge, 0, 0, 1)
			h.pair(signal.CmdKindReadPrecharge, 0, 0, 2)

			h.run(100)

			Expect(h.kinds()).To(Equal([]signal.CommandKind{
				signal.CmdKindActivate,
				signal.CmdKindReadPrecharge,
				signal.CmdKindActivate,
				signal.CmdKindReadPrecharge,
			}))
			Expect(h.log[2].cycle).To(BeNumerically(">=", cfg.TRC))
		})

		It("should keep the order of accesses to one bank", func() {
			h.pair(signal.CmdKindWritePrecharge, 0, 0, 1)
			h.pair(signal.CmdKindReadPrecharge, 0, 0, 1)

			h.run(150)

			Expect(h.kinds()).To(Equal([]signal.CommandKind{
				signal.CmdKindActivate,
				signal.CmdKindWritePrecharge,
				signal.CmdKindActivate,
				signal.CmdKindReadPrecharge,
			}))
		})

		It("should wait for banks to close before refreshing", func() {
			h.pair(signal.CmdKindReadPrecharge, 0, 0, 1)
			h.step()
			h.q.NeedRefresh(0)

			h.run(80)

			Expect(h.kinds()).To(Equal([]signal.CommandKind{
				signal.CmdKindActivate,
				signal.CmdKindReadPrecharge,
				signal.CmdKindRefresh,
			}))

			readCycle := h.log[1].cycle
			Expect(h.log[2].cycle).To(BeNumerically(">=",
				readCycle+uint64(cfg.ReadAutoPreDelay())))
		})
	})

	It("should not activate more than four banks of a rank in a tFAW window", func() {
		h = newHarness(cfg)
		for b := 0; b < 8; b++ {
			h.pair(signal.CmdKindRead, 0, b, 3)
		}

		h.run(200)

		var acts []uint64
		for _, e := range h.log {
			if e.cmd.Kind == signal.CmdKindActivate {
				acts = append(acts, e.cycle)
			}
		}

		Expect(acts).To(HaveLen(8))
		for i := 0; i+4 < len(acts); i++ {
			Expect(acts[i+4] - acts[i]).To(BeNumerically(">=", cfg.TFAW))
		}
	})

	It("should delay a posted-CAS round robin by one command", func() {
		cfg.AL = 2
		h = newHarness(cfg)

		h.pair(signal.CmdKindRead, 0, 0, 1)
		h.pair(signal.CmdKindRead, 1, 0, 1)
		h.step()

		Expect(h.q.nextRank).To(Equal(0))
		Expect(h.q.sendAct).To(BeFalse())
	})

	DescribeTable("random traffic only issues legal commands and drains",
		func(
			policy config.RowBufferPolicy,
			structure config.QueuingStructure,
			scheduling config.SchedulingPolicy,
		) {
			cfg.RowBufferPolicy = policy
			cfg.QueuingStructure = structure
			cfg.SchedulingPolicy = scheduling
			cfg.CmdQueueDepth = 8
			h = newHarness(cfg)

			rng := rand.New(rand.NewSource(7))
			read, write := signal.CmdKindRead, signal.CmdKindWrite
			if policy == config.ClosePage {
				read, write = signal.CmdKindReadPrecharge, signal.CmdKindWritePrecharge
			}

			for h.now < 3000 {
				rank := rng.Intn(cfg.NumRanks)
				bank := rng.Intn(cfg.NumBanks)
				if h.q.HasRoomFor(2, rank, bank) {
					kind := read
					if rng.Intn(3) == 0 {
						kind = write
					}
					h.pair(kind, rank, bank, rng.Intn(4))
				}

				if h.now%700 == 0 && !h.q.RefreshPending(0) &&
					!h.q.RefreshPending(1) {
					h.q.NeedRefresh(int(h.now/700) % cfg.NumRanks)
				}

				h.step()
			}

			h.run(20000)

			for r := 0; r < cfg.NumRanks; r++ {
				Expect(h.q.IsEmpty(r)).To(BeTrue())
			}

			lastActs := make([][]uint64, cfg.NumRanks)
			for _, e := range h.log {
				if e.cmd.Kind != signal.CmdKindActivate {
					continue
				}

				r := e.cmd.Location.Rank
				lastActs[r] = append(lastActs[r], e.cycle)
				if n := len(lastActs[r]); n > 4 {
					Expect(e.cycle - lastActs[r][n-5]).To(
						BeNumerically(">=", cfg.TFAW))
				}
			}
		},
		Entry("open page, per rank, rank first",
			config.OpenPage, config.PerRank, config.RankThenBankRoundRobin),
		Entry("open page, per bank, bank first",
			config.OpenPage, config.PerRankPerBank, config.BankThenRankRoundRobin),
		Entry("close page, per rank, bank first",
			config.ClosePage, config.PerRank, config.BankThenRankRoundRobin),
		Entry("close page, per bank, rank first",
			config.ClosePage, config.PerRankPerBank, config.RankThenBankRoundRobin),
	)
})
