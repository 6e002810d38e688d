package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "cls-shipper",
		Short: "Ship logs to a CLS log service and manage its resources",
		Long: `cls-shipper signs and sends requests to a CLS log service.

The ship command reads lines from stdin or tailed files, parses and enriches
them, and uploads each one as a binary log batch. The log set and topic are
resolved by name on first use and created when missing.

The logset, topic, machinegroup, index, shipper and log commands call the
service API directly and print JSON.

Hot-reload: When a config file is specified, changes to the cls, processor
and pipeline sections are applied to a running ship without a restart.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log_level from config")

	newClient := configClient(&cfgFile, &logLevel)

	rootCmd.AddCommand(
		NewShipCmd(&cfgFile, &logLevel),
		NewValidateCmd(&cfgFile),
		NewVersionCmd(),
		NewLogSetCmd(newClient),
		NewTopicCmd(newClient),
		NewMachineGroupCmd(newClient),
		NewIndexCmd(newClient),
		NewShipperCmd(newClient),
		NewLogCmd(newClient),
	)

	return rootCmd
}
