package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/vst/runner"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved SSD configuration.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return runner.PrintConfiguration(cmd.OutOrStdout(),
			cfg.BuildGeometry(), cfg.BuildLayout())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
