package stats

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// EpochReport is the summary of one channel over one epoch.
type EpochReport struct {
	Channel       int
	Cycle         uint64
	CyclesElapsed uint64
	Final         bool

	Transactions     uint64
	BytesTransferred uint64
	PendingReads     int

	// Bandwidth is the aggregate bandwidth in GB/s.
	Bandwidth float64

	// AverageLatency is the average read latency in ns.
	AverageLatency float64

	Ranks    []RankReport
	Banks    []BankReport
	Commands []CommandCount

	// Histogram is only filled in the final report.
	Histogram []HistogramBin
}

// RankReport holds the traffic and power of a rank. Powers are in watts.
type RankReport struct {
	Rank       int
	Reads      uint64
	Writes     uint64
	ReadBytes  uint64
	WriteBytes uint64

	AveragePower    float64
	BackgroundPower float64
	ActPrePower     float64
	BurstPower      float64
	RefreshPower    float64
}

// BankReport holds the traffic of a bank.
type BankReport struct {
	Rank   int
	Bank   int
	Reads  uint64
	Writes uint64

	// GrandTotal counts the accesses of every epoch so far.
	GrandTotal uint64

	Bandwidth      float64
	AverageLatency float64
}

// CommandCount is the number of commands of one kind.
type CommandCount struct {
	Kind  string
	Count uint64
}

// HistogramBin counts the reads whose latency in cycles is within
// [Start, End].
type HistogramBin struct {
	Start uint64
	End   uint64
	Count uint64
}

// Print writes the report in a human readable form.
func (r *EpochReport) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)

	fmt.Fprintln(tw, " =======================================================")
	fmt.Fprintf(tw, " ============== Printing Statistics [id:%d] ==============\n",
		r.Channel)
	fmt.Fprintf(tw,
		"  == Total Return Transactions : %d (%d bytes) aggregate average bandwidth %.3fGB/s\n",
		r.Transactions, r.BytesTransferred, r.Bandwidth)
	fmt.Fprintf(tw, "  == Pending Transactions : %d (%d) ==  CycleElapse: %d\n",
		r.PendingReads, r.Cycle, r.CyclesElapsed)
	fmt.Fprintf(tw, "      -Total Average Latency :\t%.3f ns\n", r.AverageLatency)

	for _, rr := range r.Ranks {
		fmt.Fprintf(tw, "    -Rank   %d : \n", rr.Rank)
		fmt.Fprintf(tw, "        -Reads  :\t%d\t(%d bytes)\n", rr.Reads, rr.ReadBytes)
		fmt.Fprintf(tw, "        -Writes :\t%d\t(%d bytes)\n", rr.Writes, rr.WriteBytes)
		fmt.Fprintf(tw, "  == Power Data for Rank %d\n", rr.Rank)
		fmt.Fprintf(tw, "      -Average Power (watts)\t: %.3f\n", rr.AveragePower)
		fmt.Fprintf(tw, "      -Background    (watts)\t: %.3f\n", rr.BackgroundPower)
		fmt.Fprintf(tw, "      -Act/Pre       (watts)\t: %.3f\n", rr.ActPrePower)
		fmt.Fprintf(tw, "      -Burst         (watts)\t: %.3f\n", rr.BurstPower)
		fmt.Fprintf(tw, "      -Refresh       (watts)\t: %.3f\n", rr.RefreshPower)
	}

	if r.Final {
		r.printFinal(tw)
	}

	return tw.Flush()
}

func (r *EpochReport) printFinal(w io.Writer) {
	fmt.Fprintln(w, " =======================================================")
	fmt.Fprintln(w, "  ==  Final Statistics ==")

	fmt.Fprintf(w, " ---  Latency list (%d)\n", len(r.Histogram))
	fmt.Fprintln(w, "    [lat] : #")
	for _, b := range r.Histogram {
		fmt.Fprintf(w, "    [%d-%d] :\t%d\n", b.Start, b.End, b.Count)
	}

	fmt.Fprintln(w, " --- Grand Total Bank usage list")
	rank := -1
	for _, b := range r.Banks {
		if b.Rank != rank {
			rank = b.Rank
			fmt.Fprintf(w, "  Rank %d:\n", rank)
		}

		fmt.Fprintf(w, "\tbank%d:\t%d\n", b.Bank, b.GrandTotal)
	}

	fmt.Fprintln(w, " --- DDR DRAM Command Statistics")
	for _, c := range r.Commands {
		fmt.Fprintf(w, "    %s:\t%d\n", c.Kind, c.Count)
	}
}
