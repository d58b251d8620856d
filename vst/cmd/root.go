// Package cmd provides the command-line interface for VST.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vst/runner"
)

// v holds the configuration shared by all commands. Flags are bound to it
// in the init functions of the commands.
var v = runner.NewViper()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vst",
	Short: "VST replays block traces against an FTL on a virtual SSD.",
	Long: `VST replays block traces against a page-mapping FTL running on ` +
		`a virtual SSD. Every sector the host reads back is checked ` +
		`against the last version written, and the flash operation ` +
		`counts are reported at the end of the replay.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "",
		"Configuration file (default ./vst.yaml)")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Registered exit handlers run before the process ends.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadConfig(cmd *cobra.Command) (runner.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return runner.LoadConfig(v, path)
}

func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
