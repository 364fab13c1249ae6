package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mechcore/firecontrol/internal/phase"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <scenario.yaml>",
	Short: "Resolve a scenario file and record the battle log",
	Long: `Resolve every declaration in a scenario file, phase by phase, with the
configured storage backend and InfluxDB attached. The memory backend writes
a JSON battle log that is uploaded when api.apiKey is set.

Examples:
  firecontrol resolve duel.yaml
  firecontrol resolve duel.yaml --json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var resolveJSON bool

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print the full outcome as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp("resolve")
	if err != nil {
		return err
	}
	defer a.close()

	script, name, err := loadScript(a, args[0])
	if err != nil {
		return err
	}
	g, err := script.Setup(a.catalog)
	if err != nil {
		return fmt.Errorf("set up game: %w", err)
	}
	if _, err := a.openStorage(); err != nil {
		return err
	}
	points := a.openInflux()
	session, err := a.newSession(name, script.Seed, g.Options().AsMap())
	if err != nil {
		return err
	}
	a.tagSession(session.ID, g.Phase)

	r, err := phase.New(phase.Dependencies{
		Game:    g,
		Storage: a.storage,
		Influx:  points,
		Session: session,
		Logger:  a.log,
	})
	if err != nil {
		return err
	}

	out, playErr := r.Play(cmd.Context(), script)
	if playErr != nil {
		a.log.Error("Scenario stopped early", "error", playErr)
	}

	if resolveJSON {
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		printOutcome(cmd.OutOrStdout(), out)
	}

	endCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return errors.Join(playErr, a.endSession(endCtx))
}
