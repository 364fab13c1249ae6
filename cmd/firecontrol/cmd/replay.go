package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mechcore/firecontrol/internal/phase"
	"github.com/mechcore/firecontrol/internal/scenario"
)

var (
	replayJSON       bool
	replayVerify     bool
	replayNormalized bool
)

// errDiverged is returned when two replays of one scenario differ.
var errDiverged = errors.New("replays diverged")

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml>",
	Short: "Replay a scenario and print the outcome",
	Long: `Replay a scenario on a fresh board with its seed. Nothing is recorded.
The same scenario always produces the same reports and final unit state;
--verify replays twice and fails if the outcomes differ.

Examples:
  firecontrol replay duel.yaml
  firecontrol replay duel.yaml --verify --json
  firecontrol replay duel.yaml --normalized > duel.full.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "print the outcome as JSON")
	replayCmd.Flags().BoolVar(&replayVerify, "verify", false, "replay twice and compare the outcomes")
	replayCmd.Flags().BoolVar(&replayNormalized, "normalized", false, "print the scenario with resolved ammo links instead of replaying")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	a, err := newApp("replay")
	if err != nil {
		return err
	}
	defer a.close()

	script, err := scenario.LoadFile(args[0], a.catalog)
	if err != nil {
		return err
	}
	if replayNormalized {
		return scenario.Write(cmd.OutOrStdout(), script)
	}

	out, err := phase.Replay(cmd.Context(), a.catalog, script, a.log)
	if err != nil {
		return err
	}

	if replayVerify {
		again, err := phase.Replay(cmd.Context(), a.catalog, script, a.log)
		if err != nil {
			return err
		}
		first, err := json.Marshal(out)
		if err != nil {
			return err
		}
		second, err := json.Marshal(again)
		if err != nil {
			return err
		}
		if !bytes.Equal(first, second) {
			return fmt.Errorf("%w: %s", errDiverged, args[0])
		}
		a.log.Info("Replay verified", "scenario", args[0], "results", len(out.Results), "reports", len(out.Reports))
	}

	if replayJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	printOutcome(cmd.OutOrStdout(), out)
	return nil
}
