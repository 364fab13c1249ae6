package phase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/dice"
	"github.com/mechcore/firecontrol/internal/game"
	"github.com/mechcore/firecontrol/pkg/core"
)

// replayNamespace seeds the name-based UUIDs given to declarations that
// arrive without an ID.
var replayNamespace = uuid.MustParse("6f1c3c52-4d0e-4a8e-9b57-2f4e1f9a7c10")

// HexTerrain places terrain on one hex.
type HexTerrain struct {
	Hex     core.Hex     `json:"hex" yaml:"hex"`
	Terrain core.Terrain `json:"terrain" yaml:"terrain"`
}

// Script is everything needed to rebuild a battle from scratch.
type Script struct {
	Seed         uint64             `json:"seed" yaml:"seed"`
	Options      game.Options       `json:"options" yaml:"options"`
	Units        []*core.Unit       `json:"units" yaml:"units"`
	Terrain      []HexTerrain       `json:"terrain" yaml:"terrain"`
	Declarations []core.Declaration `json:"declarations" yaml:"declarations"`
	Modes        []ModeChange       `json:"modes" yaml:"modes"`
}

// ModeChange is a weapon mode switch requested during a phase.
type ModeChange struct {
	Phase int           `json:"phase" yaml:"phase"`
	Unit  core.EntityID `json:"unit" yaml:"unit"`
	Slot  int           `json:"slot" yaml:"slot"`
	Mode  string        `json:"mode" yaml:"mode"`
}

// Outcome is the full result of a replay.
type Outcome struct {
	Phase   int                 `json:"phase"`
	Results []core.AttackResult `json:"results"`
	Reports []core.Report       `json:"reports"`
	Units   []*core.Unit        `json:"units"`
}

// Setup builds a fresh game for the script.
func (s Script) Setup(cat *catalog.Catalog) (*game.Game, error) {
	if s.Options.JamRule == "" {
		s.Options.JamRule = game.JamCancelBurst
	}
	if err := s.Options.Validate(); err != nil {
		return nil, err
	}
	g := game.New(cat, s.Options, dice.NewSeeded(s.Seed))
	for _, u := range s.Units {
		if err := g.AddUnit(u); err != nil {
			return nil, err
		}
	}
	for _, t := range s.Terrain {
		g.SetTerrain(t.Hex, t.Terrain)
	}
	return g, nil
}

// Replay runs the script's declarations phase by phase on a fresh game.
// The same script always yields the same outcome.
func Replay(ctx context.Context, cat *catalog.Catalog, s Script, logger *slog.Logger) (Outcome, error) {
	g, err := s.Setup(cat)
	if err != nil {
		return Outcome{}, err
	}
	epoch := time.Unix(0, 0).UTC()
	r, err := New(Dependencies{
		Game:   g,
		Logger: logger,
		Now:    func() time.Time { return epoch },
	})
	if err != nil {
		return Outcome{}, err
	}
	return r.Play(ctx, s)
}

// Play feeds the script's mode changes and declarations to r, ending each
// phase in turn until the last scripted phase is resolved. The game must
// already hold the script's units.
func (r *Resolver) Play(ctx context.Context, s Script) (Outcome, error) {
	g := r.deps.Game
	decls := slices.Clone(s.Declarations)
	for i := range decls {
		if decls[i].Phase == 0 {
			decls[i].Phase = 1
		}
		if decls[i].ID == "" {
			decls[i].ID = uuid.NewSHA1(replayNamespace, fmt.Appendf(nil, "%d/%d", s.Seed, i)).String()
		}
	}
	slices.SortStableFunc(decls, func(a, b core.Declaration) int { return a.Phase - b.Phase })

	last := 1
	if n := len(decls); n > 0 {
		last = decls[n-1].Phase
	}
	for _, m := range s.Modes {
		last = max(last, m.Phase)
	}

	var out Outcome
	next := 0
	for phase := g.Phase(); phase <= last; phase = g.Phase() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for _, m := range s.Modes {
			if m.Phase == phase {
				if err := g.SetMode(m.Unit, m.Slot, m.Mode); err != nil {
					return out, fmt.Errorf("phase %d: set mode: %w", phase, err)
				}
			}
		}
		for next < len(decls) && decls[next].Phase == phase {
			if _, err := r.Declare(decls[next]); err != nil {
				return out, fmt.Errorf("declaration %s: %w", decls[next].ID, err)
			}
			next++
		}
		sum, err := r.EndPhase(ctx)
		out.Results = append(out.Results, sum.Results...)
		if err != nil {
			return out, err
		}
	}

	out.Phase = g.Phase()
	out.Reports = g.Log().All()
	out.Units = g.Units()
	return out, nil
}
