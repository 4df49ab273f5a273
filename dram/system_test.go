package dram

import (
	"bytes"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/addressmapping"
	"github.com/sarchlab/dramsim/dram/internal/signal"
)

var _ = Describe("System", func() {
	var (
		cfg    *config.Config
		rec    *recorder
		s      *System
		mapper *addressmapping.SchemeMapper
	)

	build := func() {
		rec = &recorder{}
		s = MakeBuilder().WithConfig(cfg).WithHooks(rec).Build("DRAM")
		mapper = addressmapping.NewMapper(cfg)
	}

	runUntil := func(done func() bool) {
		for i := 0; i < 100000 && !done(); i++ {
			s.Update()
		}

		Expect(done()).To(BeTrue())
	}

	completed := func(n int) func() bool {
		return func() bool { return len(rec.completions) >= n }
	}

	BeforeEach(func() {
		cfg = config.Default()
		build()
	})

	It("should panic on a number of channels that is not a power of two", func() {
		cfg.NumChans = 3

		Expect(func() { MakeBuilder().WithConfig(cfg).Build("DRAM") }).To(Panic())
	})

	It("should route transactions to the channel of their address", func() {
		cfg.NumChans = 2
		build()

		addr := mapper.Address(addressmapping.Location{Channel: 1, Row: 3})
		Expect(s.AddTransaction(false, addr)).To(BeTrue())

		Expect(s.Controllers()).To(HaveLen(2))
		Expect(s.Controllers()[1].transQueue.Size()).To(Equal(1))
		Expect(s.Controllers()[0].transQueue.Size()).To(Equal(0))

		runUntil(completed(1))
		Expect(rec.completions[0].Channel).To(Equal(1))
	})

	It("should call the callbacks once per transaction", func() {
		var reads, writes []uint64

		s.RegisterCallbacks(
			func(_ int, addr, _ uint64) { reads = append(reads, addr) },
			func(_ int, addr, _ uint64) { writes = append(writes, addr) },
			nil,
		)

		s.AddTransaction(true, 0x1000)
		s.AddTransaction(false, 0x2040)

		runUntil(completed(2))
		for i := 0; i < 200; i++ {
			s.Update()
		}

		Expect(writes).To(Equal([]uint64{0x1000}))
		Expect(reads).To(Equal([]uint64{0x2040}))
	})

	It("should align addresses down to the transaction size", func() {
		s.AddTransaction(false, 0x1234)

		runUntil(completed(1))

		Expect(rec.completions[0].Address).To(Equal(uint64(0x1200)))
	})

	Context("buffering", func() {
		fill := func() []bool {
			var accepted []bool

			for i := 0; i < cfg.TransQueueDepth+4; i++ {
				accepted = append(accepted, s.AddTransaction(false, uint64(i)*64))
			}

			return accepted
		}

		It("should keep refused transactions and drain them later", func() {
			Expect(fill()).NotTo(ContainElement(false))
			Expect(s.NumOverflow()).To(Equal(4))
			Expect(s.WillAcceptTransaction(0)).To(BeFalse())
			Expect(s.WillAcceptAny()).To(BeFalse())

			runUntil(completed(cfg.TransQueueDepth + 4))
			Expect(s.NumOverflow()).To(Equal(0))
			Expect(s.WillAcceptAny()).To(BeTrue())
		})

		It("should not let a read overtake a buffered write", func() {
			cfg.TransQueueDepth = 2
			cfg.DataStorage = config.StorageRowMap
			build()

			data := bytes.Repeat([]byte{0xAB}, cfg.TransDataBytes())

			Expect(s.AddTransaction(false, 0x1000)).To(BeTrue())
			Expect(s.AddTransaction(false, 0x2000)).To(BeTrue())
			Expect(s.AddTransactionWithData(true, 0x4000, data, 0)).To(BeTrue())
			Expect(s.NumOverflow()).To(Equal(1))

			s.Update()
			Expect(s.Controllers()[0].CanAcceptTransaction()).To(BeTrue())
			Expect(s.WillAcceptTransaction(0x4000)).To(BeFalse())

			Expect(s.AddTransaction(false, 0x4000)).To(BeTrue())
			Expect(s.NumOverflow()).To(Equal(2))

			runUntil(completed(4))
			Expect(s.NumOverflow()).To(Equal(0))

			var read *Completion
			for i, c := range rec.completions {
				if !c.IsWrite && c.Address == 0x4000 {
					read = &rec.completions[i]
				}
			}

			Expect(read).NotTo(BeNil())
			Expect(read.Data).To(Equal(data))
		})

		It("should refuse transactions without buffering", func() {
			cfg.MSBuffer = false
			build()

			accepted := fill()

			Expect(accepted[:cfg.TransQueueDepth]).NotTo(ContainElement(false))
			Expect(accepted[cfg.TransQueueDepth:]).NotTo(ContainElement(true))
			Expect(s.NumOverflow()).To(Equal(0))
		})
	})

	DescribeTable("should read back written data",
		func(mode config.ReliabilityMode) {
			cfg.DataStorage = config.StorageRowMap
			cfg.Reliability = mode
			build()

			data := make([]byte, cfg.TransDataBytes())
			for i := range data {
				data[i] = byte(255 - i)
			}

			Expect(s.AddTransactionWithData(true, 0x4000, data, 0)).To(BeTrue())
			Expect(s.AddTransaction(false, 0x4000)).To(BeTrue())
			Expect(s.AddTransaction(false, 0x8000)).To(BeTrue())

			runUntil(completed(3))

			var reads []Completion
			for _, c := range rec.completions {
				if !c.IsWrite {
					reads = append(reads, c)
				}
			}

			Expect(reads).To(HaveLen(2))
			for _, r := range reads {
				if r.Address == 0x4000 {
					Expect(r.Data).To(Equal(data))
				} else {
					Expect(r.Data).To(Equal(make([]byte, len(data))))
				}
			}

			corrected, uncorrectable := s.Controllers()[0].ECCStats()
			Expect(corrected).To(BeZero())
			Expect(uncorrectable).To(BeZero())
		},
		Entry("without ECC", config.ReliabilityNone),
		Entry("with SECDED", config.ReliabilitySECDED),
		Entry("with chipkill", config.ReliabilityChipkill),
	)

	It("should size commands by the length of their transaction", func() {
		small := mapper.Address(addressmapping.Location{Bank: 1, Row: 2})
		full := mapper.Address(addressmapping.Location{Bank: 3, Row: 4})

		Expect(s.AddSizedTransaction(false, small, nil, 4, 0)).To(BeTrue())
		Expect(s.AddSizedTransaction(true, full, nil, 0, 0)).To(BeTrue())
		runUntil(completed(2))

		lengths := map[uint64][]int{}
		for _, c := range rec.issued() {
			if c.cmd.Kind == signal.CmdKindPrecharge {
				continue
			}

			lengths[c.cmd.Address] = append(lengths[c.cmd.Address], c.cmd.Len)
		}

		Expect(lengths).To(Equal(map[uint64][]int{
			small: {4, 4},
			full:  {cfg.NumDevices(), cfg.NumDevices()},
		}))
	})

	It("should activate once for a write and a read to the same row", func() {
		addr := mapper.Address(addressmapping.Location{Bank: 2, Row: 7, Column: 3})

		s.AddTransaction(true, addr)
		s.AddTransaction(false, addr)
		runUntil(completed(2))

		var kinds []signal.CommandKind
		for _, c := range rec.issued() {
			kinds = append(kinds, c.cmd.Kind)
		}

		Expect(kinds).To(Equal([]signal.CommandKind{
			signal.CmdKindActivate, signal.CmdKindWrite, signal.CmdKindRead,
			signal.CmdKindPrecharge,
		}))
	})

	It("should precharge between reads to two rows under close page", func() {
		cfg.RowBufferPolicy = config.ClosePage
		build()

		s.AddTransaction(false, mapper.Address(addressmapping.Location{Bank: 1, Row: 1}))
		s.AddTransaction(false, mapper.Address(addressmapping.Location{Bank: 1, Row: 2}))
		runUntil(completed(2))

		var kinds []signal.CommandKind
		for _, c := range rec.issued() {
			kinds = append(kinds, c.cmd.Kind)
		}

		Expect(kinds).To(Equal([]signal.CommandKind{
			signal.CmdKindActivate, signal.CmdKindReadPrecharge,
			signal.CmdKindActivate, signal.CmdKindReadPrecharge,
		}))
	})

	It("should not activate a rank more than four times in a tFAW window", func() {
		cfg.RowBufferPolicy = config.ClosePage
		build()

		for i := 0; i < 64; i++ {
			addr := mapper.Address(addressmapping.Location{
				Bank: i % cfg.NumBanks,
				Row:  i,
			})
			s.AddTransaction(false, addr)
		}

		runUntil(completed(64))

		var acts []issuedCommand
		for _, c := range rec.issued() {
			if c.cmd.Kind == signal.CmdKindActivate {
				acts = append(acts, c)
			}
		}

		for i, a := range acts {
			inWindow := 0
			for _, b := range acts[i:] {
				if b.cmd.Location.Rank == a.cmd.Location.Rank &&
					b.cycle < a.cycle+uint64(cfg.TFAW) {
					inWindow++
				}
			}

			Expect(inWindow).To(BeNumerically("<=", 4))
		}
	})

	Context("epochs", func() {
		var powerReports int

		BeforeEach(func() {
			cfg.EpochLength = 1000
			build()

			powerReports = 0
			s.RegisterCallbacks(nil, nil,
				func(_, _ int, background, _, _, _ float64) {
					Expect(background).To(BeNumerically(">", 0))
					powerReports++
				})
		})

		It("should count every completed transaction in a bank", func() {
			rng := rand.New(rand.NewSource(1))
			issued := 0

			for s.CurrentCycle() < 12000 {
				if issued < 600 && rng.Intn(4) == 0 &&
					s.WillAcceptTransaction(0) {
					addr := uint64(rng.Intn(1<<20)) * 64
					s.AddTransaction(rng.Intn(3) == 0, addr)
					issued++
				}

				s.Update()
			}

			Expect(rec.reports).To(HaveLen(11))
			Expect(powerReports).To(Equal(11 * cfg.NumRanks))

			var total uint64
			for _, r := range rec.reports {
				var sum uint64
				for _, b := range r.Banks {
					sum += b.Reads + b.Writes
				}

				Expect(sum).To(Equal(r.Transactions))
				Expect(r.CyclesElapsed).To(Equal(uint64(1000)))
				total += r.Transactions
			}

			Expect(total).To(Equal(uint64(issued)))
			Expect(len(rec.completions)).To(Equal(issued))
		})

		It("should print the final report", func() {
			buf := new(bytes.Buffer)
			cfg.EpochLength = 0
			s = MakeBuilder().
				WithConfig(cfg).
				WithHooks(NewReportPrinter(buf)).
				Build("DRAM")

			s.AddTransaction(false, 0x40)
			for i := 0; i < 100; i++ {
				s.Update()
			}

			reports := s.PrintStats(true)

			Expect(reports).To(HaveLen(1))
			Expect(reports[0].Transactions).To(Equal(uint64(1)))
			Expect(buf.String()).To(ContainSubstring("==== Channel [0] ===="))
			Expect(buf.String()).To(ContainSubstring("Final Statistics"))
		})
	})

	It("should trace issued commands", func() {
		buf := new(bytes.Buffer)
		s = MakeBuilder().
			WithConfig(cfg).
			WithHooks(NewCommandTracer(buf)).
			Build("DRAM")

		s.AddTransaction(false, 0x40)
		for i := 0; i < 50; i++ {
			s.Update()
		}

		Expect(buf.String()).To(ContainSubstring("ACT 0x40"))
		Expect(buf.String()).To(ContainSubstring("READ 0x40"))
	})

	It("should run two systems with different configurations", func() {
		other := cfg.Clone()
		other.RowBufferPolicy = config.ClosePage
		otherRec := &recorder{}
		s2 := MakeBuilder().WithConfig(other).WithHooks(otherRec).Build("DRAM2")

		s.AddTransaction(false, 0x40)
		s2.AddTransaction(false, 0x40)

		for i := 0; i < 100; i++ {
			s.Update()
			s2.Update()
		}

		Expect(rec.issued()[1].cmd.Kind).To(Equal(signal.CmdKindRead))
		Expect(otherRec.issued()[1].cmd.Kind).To(Equal(signal.CmdKindReadPrecharge))
	})

	It("should power down idle ranks", func() {
		for i := 0; i < 10; i++ {
			s.Update()
		}

		Expect(s.Controllers()[0].powerDown).To(Equal([]bool{true, true}))

		s.AddTransaction(false, 0x40)
		runUntil(completed(1))

		first := rec.issued()[0]
		Expect(first.cmd.Kind).To(Equal(signal.CmdKindActivate))
		Expect(first.cycle).To(Equal(uint64(10 + cfg.TXP)))
	})
})
