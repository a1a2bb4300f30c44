package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "taskping",
		Short: "taskping - task tracking with timezone-aware daily reminders",
		Long: `taskping keeps per-user task lists in SQLite and nudges each user once a
day in their own timezone. It also brokers task offers between users:
an offer is accepted, declined, or times out, and only the first
response counts.

Running taskping with no subcommand starts the server.`,
		RunE:          runServe, // Default action is serve
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "taskping.yaml", "Path to the YAML config file")
}

// Execute runs the root command
func Execute(version string) error {
	// Add subcommands here to ensure proper initialization order
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
