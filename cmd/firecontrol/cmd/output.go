package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mechcore/firecontrol/internal/phase"
	"github.com/mechcore/firecontrol/pkg/core"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOutcome writes the battle log followed by a per-unit damage summary.
func printOutcome(w io.Writer, out phase.Outcome) {
	printReports(w, out.Reports)

	fmt.Fprintf(w, "\n%d attacks resolved, now phase %d\n", len(out.Results), out.Phase)
	for _, u := range out.Units {
		status := "operational"
		if u.Destroyed {
			status = "destroyed"
		}
		fmt.Fprintf(w, "  #%d %-20s armor %3d  heat %2d  %s\n", u.ID, u.Name, u.TotalArmor(), u.Heat, status)
	}
}

func printReports(w io.Writer, reports []core.Report) {
	phase := 0
	for _, r := range reports {
		if r.Phase != phase {
			phase = r.Phase
			fmt.Fprintf(w, "-- phase %d --\n", phase)
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", r.Indent), r.Text)
	}
}

func printResult(w io.Writer, r core.AttackResult) {
	switch {
	case r.Aborted:
		fmt.Fprintf(w, "#%d %s: aborted (%s)\n", r.Attacker, r.Weapon, r.Reason)
	case r.Hit:
		fmt.Fprintf(w, "#%d %s -> #%d: hit, %d damage (needed %d, rolled %d)\n",
			r.Attacker, r.Weapon, r.Target, r.Damage, r.ToHit, r.Roll)
	default:
		fmt.Fprintf(w, "#%d %s -> #%d: miss (needed %d, rolled %d)\n",
			r.Attacker, r.Weapon, r.Target, r.ToHit, r.Roll)
	}
}
