// Package cmd holds the firecontrol command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "firecontrol",
	Short: "BattleTech weapon attack resolution server",
	Long: `firecontrol resolves BattleTech weapon attacks phase by phase.

Available commands:
  serve     Accept players over TCP and WebSocket and resolve their attacks
  resolve   Resolve a scenario file and record the battle log
  replay    Replay a scenario deterministically and print the outcome
  fire      Connect to a server and declare attacks
  export    Export a recorded session from the database
  migrate   Copy SQLite backup databases into Postgres

Use "firecontrol [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", ".", "directory holding firecontrol.cfg.json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}
