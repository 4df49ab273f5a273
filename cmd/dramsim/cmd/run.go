package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/dramsim/cache"
	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/datarecording"
	"github.com/sarchlab/dramsim/dram"
	"github.com/sarchlab/dramsim/hooking"
	"github.com/sarchlab/dramsim/monitoring"
	"github.com/sarchlab/dramsim/simulator"
	"github.com/sarchlab/dramsim/trace"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

type runFlags struct {
	configFlags

	trace        string
	format       string
	cycles       uint64
	cpuFreq      uint64
	ignoreCycles bool
	quiet        bool

	cache      bool
	cacheCores int

	record        string
	traceCommands string

	monitor     bool
	monitorPort int
	openBrowser bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a trace through the memory system.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(&runOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := runCmd.Flags()

	runOpts.register(runCmd)
	f.StringVarP(&runOpts.trace, "trace", "t", "", "trace file to simulate")
	f.StringVar(&runOpts.format, "format", "",
		"trace format: k6, k7, pin or mase (default: from the file name)")
	f.Uint64VarP(&runOpts.cycles, "cycles", "c", 0,
		"number of CPU cycles to simulate, 0 to run the whole trace")
	f.Uint64Var(&runOpts.cpuFreq, "cpu-freq", 0,
		"CPU frequency in Hz, 0 to run at the DRAM frequency")
	f.BoolVarP(&runOpts.ignoreCycles, "ignore-cycles", "n", false,
		"send every access as soon as possible")
	f.BoolVarP(&runOpts.quiet, "quiet", "q", false,
		"do not print epoch statistics")
	f.BoolVar(&runOpts.cache, "cache", false,
		"filter the trace through a last-level cache")
	f.IntVar(&runOpts.cacheCores, "cache-cores", 4,
		"number of cores the cache is sized for, 32 MiB each")
	f.StringVar(&runOpts.record, "record", "",
		"record statistics into the SQLite database NAME.sqlite3")
	f.StringVar(&runOpts.traceCommands, "trace-commands", "",
		"write every issued DRAM command to this file")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the state of the simulation over HTTP")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"port of the monitoring server, 0 for a random port")
	f.BoolVar(&runOpts.openBrowser, "open-browser", false,
		"open the monitoring page in a browser")

	err := runCmd.MarkFlagRequired("trace")
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd)
}

func run(opts *runFlags, out io.Writer) error {
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}

	reader, err := openTrace(opts, cfg)
	if err != nil {
		return err
	}

	var hooks []hooking.Hook

	if !opts.quiet {
		hooks = append(hooks, dram.NewReportPrinter(out))
	}

	if opts.traceCommands != "" {
		f, err := os.Create(opts.traceCommands)
		if err != nil {
			return fmt.Errorf("creating command trace: %w", err)
		}

		atexit.Register(func() { f.Close() })

		hooks = append(hooks, dram.NewCommandTracer(f))
	}

	var recorder datarecording.DataRecorder
	if opts.record != "" {
		recorder = datarecording.New(opts.record)
		hooks = append(hooks, datarecording.NewEpochRecorder(recorder))
	}

	memory := dram.MakeBuilder().
		WithConfig(cfg).
		WithHooks(hooks...).
		Build("DRAM")

	builder := simulator.MakeBuilder().
		WithMemorySystem(memory).
		WithCPUFrequency(opts.cpuFreq).
		WithCycleLimit(opts.cycles)

	var llc *cache.Cache
	if opts.cache {
		llc = cache.MakeBuilder().
			WithNumCores(opts.cacheCores).
			WithWarmupCycles(opts.cycles / 2).
			Build()
		builder = builder.WithCache(llc)
	}

	var (
		monitor *monitoring.Monitor
		bar     *monitoring.ProgressBar
	)

	if opts.monitor {
		monitor = monitoring.NewMonitor().
			WithPortNumber(opts.monitorPort).
			WithBrowser(opts.openBrowser)
		bar = monitor.CreateProgressBar("Requests", 0)
		builder = builder.WithProgressTracker(bar)
	}

	sim := builder.Build(reader)

	if monitor != nil {
		monitor.RegisterSimulation(sim)
		for _, c := range memory.Controllers() {
			monitor.RegisterComponent(c)
		}
		monitor.StartServer()
	}

	err = sim.Run()
	if err != nil {
		return err
	}

	if bar != nil {
		monitor.CompleteProgressBar(bar)
	}

	memory.PrintStats(true)

	fmt.Fprintln(out, sim.Stats())
	if llc != nil {
		fmt.Fprintln(out, llc.Stats())
	}

	if recorder != nil {
		recorder.Close()
	}

	return nil
}

func openTrace(opts *runFlags, cfg *config.Config) (*trace.Reader, error) {
	var (
		format trace.Format
		err    error
	)

	if opts.format != "" {
		format, err = trace.ParseFormat(opts.format)
	} else {
		format, err = trace.FormatFromFilename(opts.trace)
	}

	if err != nil {
		return nil, err
	}

	f, err := os.Open(opts.trace)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}

	atexit.Register(func() { f.Close() })

	reader := trace.NewReader(f, format)
	reader.IgnoreCycles = opts.ignoreCycles
	reader.TransDataBytes = cfg.TransDataBytes()

	return reader, nil
}
