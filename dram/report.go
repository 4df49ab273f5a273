package dram

import (
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/dramsim/dram/internal/signal"
	"github.com/sarchlab/dramsim/dram/internal/stats"
	"github.com/sarchlab/dramsim/hooking"
)

type (
	// EpochReport is the summary of one channel over one epoch.
	EpochReport = stats.EpochReport

	// RankReport holds the traffic and power of a rank.
	RankReport = stats.RankReport

	// BankReport holds the traffic of a bank.
	BankReport = stats.BankReport

	// CommandCount is the number of commands of one kind.
	CommandCount = stats.CommandCount

	// HistogramBin is a bin of the read latency histogram.
	HistogramBin = stats.HistogramBin

	// Command is a command sent over the command or data bus.
	Command = signal.Command
)

// ReportPrinter is a hook that prints every epoch report it sees.
type ReportPrinter struct {
	w io.Writer
}

// NewReportPrinter creates a ReportPrinter writing to w.
func NewReportPrinter(w io.Writer) *ReportPrinter {
	return &ReportPrinter{w: w}
}

// Func prints the report carried by an epoch end hook.
func (p *ReportPrinter) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosEpochEnd {
		return
	}

	r := ctx.Item.(EpochReport)

	fmt.Fprintf(p.w, "==== Channel [%d] ====\n", r.Channel)

	if err := r.Print(p.w); err != nil {
		log.Printf("cannot print report of channel %d: %v", r.Channel, err)
	}

	fmt.Fprintf(p.w, "//// Channel [%d] ////\n", r.Channel)
}

// CommandTracer is a hook that writes one line for each issued command.
type CommandTracer struct {
	logger *log.Logger
}

// NewCommandTracer creates a CommandTracer writing to w.
func NewCommandTracer(w io.Writer) *CommandTracer {
	return &CommandTracer{logger: log.New(w, "", 0)}
}

// Func logs the command carried by a command issue hook.
func (t *CommandTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosCommandIssue {
		return
	}

	cmd := ctx.Item.(Command)
	t.logger.Printf("%d %s", ctx.Now, cmd)
}
