package datarecording

import (
	"github.com/sarchlab/dramsim/dram"
	"github.com/sarchlab/dramsim/hooking"
)

// Names of the tables written by an EpochRecorder.
const (
	EpochTable     = "epochs"
	BankTable      = "bank_stats"
	RankTable      = "rank_power"
	CommandTable   = "commands"
	HistogramTable = "latency_histogram"
)

// EpochEntry is a row of the epochs table.
type EpochEntry struct {
	Channel          int
	Epoch            int
	Cycle            uint64
	CyclesElapsed    uint64
	Final            bool
	Transactions     uint64
	BytesTransferred uint64
	PendingReads     int
	Bandwidth        float64
	AverageLatency   float64
}

// BankEntry is a row of the bank_stats table.
type BankEntry struct {
	Channel        int
	Epoch          int
	Rank           int
	Bank           int
	Reads          uint64
	Writes         uint64
	GrandTotal     uint64
	Bandwidth      float64
	AverageLatency float64
}

// RankEntry is a row of the rank_power table.
type RankEntry struct {
	Channel         int
	Epoch           int
	Rank            int
	Reads           uint64
	Writes          uint64
	ReadBytes       uint64
	WriteBytes      uint64
	AveragePower    float64
	BackgroundPower float64
	ActPrePower     float64
	BurstPower      float64
	RefreshPower    float64
}

// CommandEntry is a row of the commands table.
type CommandEntry struct {
	Channel int
	Epoch   int
	Kind    string
	Count   uint64
}

// HistogramEntry is a row of the latency_histogram table.
type HistogramEntry struct {
	Channel int
	Start   uint64
	End     uint64
	Count   uint64
}

// EpochRecorder is a hook that records the epoch reports of memory
// controllers.
type EpochRecorder struct {
	recorder DataRecorder
	epochs   map[int]int
}

// NewEpochRecorder creates the tables of the epoch reports in recorder.
func NewEpochRecorder(recorder DataRecorder) *EpochRecorder {
	recorder.CreateTable(EpochTable, EpochEntry{})
	recorder.CreateTable(BankTable, BankEntry{})
	recorder.CreateTable(RankTable, RankEntry{})
	recorder.CreateTable(CommandTable, CommandEntry{})
	recorder.CreateTable(HistogramTable, HistogramEntry{})

	return &EpochRecorder{
		recorder: recorder,
		epochs:   make(map[int]int),
	}
}

// Func records the report of an epoch end.
func (r *EpochRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != dram.HookPosEpochEnd {
		return
	}

	r.Record(ctx.Item.(dram.EpochReport))
}

// Record inserts the rows of one report.
func (r *EpochRecorder) Record(report dram.EpochReport) {
	ch := report.Channel
	epoch := r.epochs[ch]
	r.epochs[ch]++

	r.recorder.InsertData(EpochTable, EpochEntry{
		Channel:          ch,
		Epoch:            epoch,
		Cycle:            report.Cycle,
		CyclesElapsed:    report.CyclesElapsed,
		Final:            report.Final,
		Transactions:     report.Transactions,
		BytesTransferred: report.BytesTransferred,
		PendingReads:     report.PendingReads,
		Bandwidth:        report.Bandwidth,
		AverageLatency:   report.AverageLatency,
	})

	for _, b := range report.Banks {
		r.recorder.InsertData(BankTable, BankEntry{
			Channel:        ch,
			Epoch:          epoch,
			Rank:           b.Rank,
			Bank:           b.Bank,
			Reads:          b.Reads,
			Writes:         b.Writes,
			GrandTotal:     b.GrandTotal,
			Bandwidth:      b.Bandwidth,
			AverageLatency: b.AverageLatency,
		})
	}

	for _, rk := range report.Ranks {
		r.recorder.InsertData(RankTable, RankEntry{
			Channel:         ch,
			Epoch:           epoch,
			Rank:            rk.Rank,
			Reads:           rk.Reads,
			Writes:          rk.Writes,
			ReadBytes:       rk.ReadBytes,
			WriteBytes:      rk.WriteBytes,
			AveragePower:    rk.AveragePower,
			BackgroundPower: rk.BackgroundPower,
			ActPrePower:     rk.ActPrePower,
			BurstPower:      rk.BurstPower,
			RefreshPower:    rk.RefreshPower,
		})
	}

	for _, c := range report.Commands {
		r.recorder.InsertData(CommandTable, CommandEntry{
			Channel: ch,
			Epoch:   epoch,
			Kind:    c.Kind,
			Count:   c.Count,
		})
	}

	for _, bin := range report.Histogram {
		r.recorder.InsertData(HistogramTable, HistogramEntry{
			Channel: ch,
			Start:   bin.Start,
			End:     bin.End,
			Count:   bin.Count,
		})
	}
}
