// Package cmd provides the command-line interface of dramsim.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dramsim",
	Short: "dramsim is a cycle-accurate DRAM memory system simulator.",
	Long: `dramsim simulates the memory controllers, ranks and banks of a ` +
		`DRAM memory system, driven by a trace of memory accesses. It ` +
		`reports bandwidth, latency and power per epoch.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
