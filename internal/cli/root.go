// Package cli implements the devicelink CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devicelink",
	Short: "Send links to your paired devices",
	Long: `devicelink talks to the devicelinkd bridge, which relays between browser
surfaces and the companion application that owns your paired devices.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands (alphabetical)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(watchCmd)
}
