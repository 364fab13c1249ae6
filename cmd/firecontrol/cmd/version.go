package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mechcore/firecontrol/pkg/protocol"
)

var version = "0.1.0" // set at build time with -ldflags "-X ...cmd.version="

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and protocol number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "firecontrol v%s (protocol %d)\n", version, protocol.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
