// Package stats accumulates the counters of a memory controller and turns
// them into epoch reports.
package stats

import (
	"sort"

	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/signal"
)

// Counters holds what a channel did during the current epoch, plus the few
// totals that span the whole run.
type Counters struct {
	cfg *config.Config

	Transactions uint64
	Reads        []uint64
	Writes       []uint64
	Latency      []uint64
	Commands     [signal.NumCmdKind]uint64

	// Energies per rank, in mA times cycles.
	Background []int64
	Burst      []int64
	ActPre     []int64
	Refresh    []int64

	grandTotal []uint64
	histogram  map[uint64]uint64
}

// NewCounters creates zeroed counters for the organization of cfg.
func NewCounters(cfg *config.Config) *Counters {
	n := cfg.NumRanks * cfg.NumBanks

	return &Counters{
		cfg:        cfg,
		Reads:      make([]uint64, n),
		Writes:     make([]uint64, n),
		Latency:    make([]uint64, n),
		Background: make([]int64, cfg.NumRanks),
		Burst:      make([]int64, cfg.NumRanks),
		ActPre:     make([]int64, cfg.NumRanks),
		Refresh:    make([]int64, cfg.NumRanks),
		grandTotal: make([]uint64, n),
		histogram:  make(map[uint64]uint64),
	}
}

func (c *Counters) index(rank, bank int) int {
	return rank*c.cfg.NumBanks + bank
}

// AddRead records a completed read and its latency in cycles.
func (c *Counters) AddRead(rank, bank int, latency uint64) {
	i := c.index(rank, bank)

	c.Transactions++
	c.Reads[i]++
	c.Latency[i] += latency

	bin := uint64(c.cfg.HistogramBinSize)
	c.histogram[latency/bin*bin]++
}

// AddWrite records a write whose data has been sent.
func (c *Counters) AddWrite(rank, bank int) {
	c.Transactions++
	c.Writes[c.index(rank, bank)]++
}

// AddCommand counts an issued command and the energy it costs. Len is the
// number of devices the command drives.
func (c *Counters) AddCommand(cmd *signal.Command) {
	cfg := c.cfg
	rank := cmd.Location.Rank
	length := int64(cmd.Len)

	c.Commands[cmd.Kind]++

	switch {
	case cmd.Kind.IsRead():
		c.Burst[rank] += int64((cfg.IDD4R-cfg.IDD3N)*cfg.BL/2) * length
	case cmd.Kind.IsWrite():
		c.Burst[rank] += int64((cfg.IDD4W-cfg.IDD3N)*cfg.BL/2) * length
	case cmd.Kind == signal.CmdKindActivate:
		c.ActPre[rank] += int64(cfg.IDD0*cfg.TRC-
			(cfg.IDD3N*cfg.TRAS+cfg.IDD2N*(cfg.TRC-cfg.TRAS))) * length
	case cmd.Kind == signal.CmdKindRefresh:
		c.Refresh[rank] += int64((cfg.IDD5-cfg.IDD3N)*cfg.TRFC) *
			int64(cfg.NumDevices())
	}
}

// AddBackground adds one cycle of background current for a rank.
func (c *Counters) AddBackground(rank, current int) {
	c.Background[rank] += int64(current * c.cfg.NumDevices())
}

// Reset clears the epoch counters. Totals that span the run are kept.
func (c *Counters) Reset() {
	for i := range c.Reads {
		c.grandTotal[i] += c.Reads[i] + c.Writes[i]
	}

	c.Transactions = 0
	clear(c.Reads)
	clear(c.Writes)
	clear(c.Latency)
	clear(c.Background)
	clear(c.Burst)
	clear(c.ActPre)
	clear(c.Refresh)
	c.Commands = [signal.NumCmdKind]uint64{}
}

// CyclesElapsed returns the length of the epoch that ends at cycle now.
func (c *Counters) CyclesElapsed(now uint64) uint64 {
	epoch := c.cfg.EpochLength

	switch {
	case epoch == 0:
		return now
	case now%epoch == 0:
		return epoch
	default:
		return now % epoch
	}
}

// Report summarizes the epoch that ends at cycle now.
func (c *Counters) Report(
	channel int,
	now uint64,
	pendingReads int,
	final bool,
) EpochReport {
	cfg := c.cfg
	cycles := c.CyclesElapsed(now)
	seconds := float64(cycles) * cfg.TCK * 1e-9
	bytesPerTrans := uint64(cfg.TransDataBytes())

	r := EpochReport{
		Channel:          channel,
		Cycle:            now,
		CyclesElapsed:    cycles,
		Final:            final,
		Transactions:     c.Transactions,
		BytesTransferred: c.Transactions * bytesPerTrans,
		PendingReads:     pendingReads,
	}

	var totalReads, totalLatency uint64

	for rank := 0; rank < cfg.NumRanks; rank++ {
		rr := RankReport{Rank: rank}

		for bank := 0; bank < cfg.NumBanks; bank++ {
			i := c.index(rank, bank)
			br := BankReport{
				Rank:       rank,
				Bank:       bank,
				Reads:      c.Reads[i],
				Writes:     c.Writes[i],
				GrandTotal: c.grandTotal[i] + c.Reads[i] + c.Writes[i],
			}

			if seconds > 0 {
				br.Bandwidth = float64((br.Reads+br.Writes)*bytesPerTrans) /
					(1 << 30) / seconds
			}

			if br.Reads > 0 {
				br.AverageLatency = float64(c.Latency[i]) /
					float64(br.Reads) * cfg.TCK
			}

			rr.Reads += br.Reads
			rr.Writes += br.Writes
			r.Bandwidth += br.Bandwidth
			totalReads += br.Reads
			totalLatency += c.Latency[i]

			r.Banks = append(r.Banks, br)
		}

		rr.ReadBytes = rr.Reads * bytesPerTrans
		rr.WriteBytes = rr.Writes * bytesPerTrans

		if cycles > 0 {
			rr.BackgroundPower = c.power(c.Background[rank], cycles)
			rr.BurstPower = c.power(c.Burst[rank], cycles)
			rr.RefreshPower = c.power(c.Refresh[rank], cycles)
			rr.ActPrePower = c.power(c.ActPre[rank], cycles)
			rr.AveragePower = rr.BackgroundPower + rr.BurstPower +
				rr.RefreshPower + rr.ActPrePower
		}

		r.Ranks = append(r.Ranks, rr)
	}

	if totalReads > 0 {
		r.AverageLatency = float64(totalLatency) / float64(totalReads) * cfg.TCK
	}

	for k := signal.CommandKind(0); k < signal.NumCmdKind; k++ {
		r.Commands = append(r.Commands, CommandCount{
			Kind:  k.String(),
			Count: c.Commands[k],
		})
	}

	if final {
		r.Histogram = c.Histogram()
	}

	return r
}

// power converts an energy in mA times cycles into watts.
func (c *Counters) power(energy int64, cycles uint64) float64 {
	return float64(energy) / float64(cycles) * c.cfg.Vdd / 1000.0
}

// Histogram returns the read latency histogram of the whole run, sorted by
// bin.
func (c *Counters) Histogram() []HistogramBin {
	bins := make([]HistogramBin, 0, len(c.histogram))
	for start, count := range c.histogram {
		bins = append(bins, HistogramBin{
			Start: start,
			End:   start + uint64(c.cfg.HistogramBinSize) - 1,
			Count: count,
		})
	}

	sort.Slice(bins, func(i, j int) bool {
		return bins[i].Start < bins[j].Start
	})

	return bins
}
