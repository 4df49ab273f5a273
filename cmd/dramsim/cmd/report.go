package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/sarchlab/dramsim/datarecording"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report DB.sqlite3",
	Short: "Summarize the statistics recorded by `run --record`.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func report(ctx context.Context, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	props, err := reader.ExecInfo(ctx)
	if err != nil {
		return err
	}

	for _, p := range props {
		fmt.Fprintf(out, "%s: %s\n", p[0], p[1])
	}

	summaries, err := datarecording.Summarize(ctx, reader)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "Channel\tEpochs\tCycles\tTransactions\tBytes\t"+
		"Bandwidth (GB/s)\tLatency (ns)\tPower (W)")

	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%.3f\t%.3f\t%.3f\n",
			s.Channel, s.Epochs, s.Cycles, s.Transactions, s.Bytes,
			s.Bandwidth, s.AverageLatency, s.Power)
	}

	err = tw.Flush()
	if err != nil {
		return err
	}

	for _, s := range summaries {
		counts, err := reader.CommandCounts(ctx, s.Channel)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Channel %d commands:", s.Channel)
		for _, kind := range slices.Sorted(maps.Keys(counts)) {
			fmt.Fprintf(out, " %s=%d", kind, counts[kind])
		}
		fmt.Fprintln(out)
	}

	return nil
}
