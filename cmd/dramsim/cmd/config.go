package cmd

import (
	"fmt"

	"github.com/sarchlab/dramsim/config"
	"github.com/spf13/cobra"
)

// configFlags are the flags that select the parameters of the simulated
// memory system.
type configFlags struct {
	device    string
	system    string
	overrides string
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.device, "device", "d", "",
		"device parameter file (KEY=VALUE lines)")
	cmd.Flags().StringVarP(&f.system, "system", "s", "",
		"system parameter file (KEY=VALUE lines)")
	cmd.Flags().StringVarP(&f.overrides, "option", "o", "",
		"parameter overrides, as KEY=VALUE,KEY=VALUE")
}

// resolve loads the parameter files, applies the overrides and validates the
// result.
func (f *configFlags) resolve() (*config.Config, error) {
	cfg, err := config.Load(f.device, f.system)
	if err != nil {
		return nil, err
	}

	overrides, err := config.ParseOverrides(f.overrides)
	if err != nil {
		return nil, err
	}

	err = cfg.Apply(overrides)
	if err != nil {
		return nil, fmt.Errorf("applying overrides: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var configOpts configFlags

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved parameters of the memory system.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := configOpts.resolve()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, p := range cfg.Params() {
			fmt.Fprintf(out, "%s=%s\n", p.Key, p.Value)
		}

		fmt.Fprintf(out, "# %d devices per rank, %d bytes per transaction, %d MB\n",
			cfg.NumDevices(), cfg.TransDataBytes(), cfg.TotalStorageMB())

		return nil
	},
}

func init() {
	configOpts.register(configCmd)
	rootCmd.AddCommand(configCmd)
}
