// Package game holds the authoritative battle state. Reads return copies;
// writes go through a ChangeSet committed under the turn token.
package game

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/dice"
	"github.com/mechcore/firecontrol/internal/report"
	"github.com/mechcore/firecontrol/pkg/core"
)

var (
	// ErrTokenHeld is returned when the turn token is already taken.
	ErrTokenHeld = errors.New("turn token already held")
	// ErrStaleToken is returned for a released or foreign token.
	ErrStaleToken = errors.New("stale turn token")
	// ErrUnknownEntity is returned for an id not on the board.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrCommitted is returned when a change-set is committed twice.
	ErrCommitted = errors.New("change-set already committed")
)

// Game is the coordinator every attack reads from and commits to.
type Game struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog
	options Options
	src     dice.Source
	log     *report.Log

	units   map[core.EntityID]*core.Unit
	terrain map[core.Hex]core.Terrain
	phase   int

	token    *Token
	tokenSeq uint64
}

// New creates a game at phase 1.
func New(cat *catalog.Catalog, opts Options, src dice.Source) *Game {
	return &Game{
		catalog: cat,
		options: opts,
		src:     src,
		log:     report.NewLog(),
		units:   make(map[core.EntityID]*core.Unit),
		terrain: make(map[core.Hex]core.Terrain),
		phase:   1,
	}
}

// Catalog returns the equipment catalog.
func (g *Game) Catalog() *catalog.Catalog { return g.catalog }

// Options returns the optional rules.
func (g *Game) Options() Options { return g.options }

// Dice returns the game's random source.
func (g *Game) Dice() dice.Source { return g.src }

// Log returns the battle log.
func (g *Game) Log() *report.Log { return g.log }

// Phase returns the current phase number.
func (g *Game) Phase() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phase
}

// AddUnit places a unit on the board. Equipment must be known to the catalog.
func (g *Game) AddUnit(u *core.Unit) error {
	if u.ID == 0 {
		return errors.New("unit id must not be zero")
	}
	for _, m := range u.Equipment {
		if _, err := g.catalog.Weapon(m.Type); err == nil {
			continue
		}
		if !g.catalog.IsAmmo(m.Type) {
			return fmt.Errorf("unit %d slot %d: %w: %q", u.ID, m.Slot, catalog.ErrUnknownEquipment, m.Type)
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.units[u.ID]; dup {
		return fmt.Errorf("unit %d already on the board", u.ID)
	}
	g.units[u.ID] = u.Clone()
	return nil
}

// SetTerrain replaces the terrain of a hex.
func (g *Game) SetTerrain(h core.Hex, t core.Terrain) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.terrain[h] = t
}

// Entity returns a copy of a unit.
func (g *Game) Entity(id core.EntityID) (*core.Unit, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.units[id]
	if !ok {
		return nil, false
	}
	return u.Clone(), true
}

// Units returns copies of all units ordered by id.
func (g *Game) Units() []*core.Unit {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*core.Unit, 0, len(g.units))
	for _, u := range g.units {
		out = append(out, u.Clone())
	}
	slices.SortFunc(out, func(a, b *core.Unit) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// TerrainAt returns the terrain of a hex.
func (g *Game) TerrainAt(h core.Hex) core.Terrain {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.terrain[h]
}

// WoodedHexes returns every hex with woods in a stable order.
func (g *Game) WoodedHexes() []core.Hex {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return woodedHexes(g.terrain, nil)
}

func woodedHexes(base, staged map[core.Hex]core.Terrain) []core.Hex {
	var out []core.Hex
	for h, t := range base {
		if st, ok := staged[h]; ok {
			t = st
		}
		if t.Woods != core.WoodsNone {
			out = append(out, h)
		}
	}
	for h, t := range staged {
		if _, seen := base[h]; !seen && t.Woods != core.WoodsNone {
			out = append(out, h)
		}
	}
	slices.SortFunc(out, compareHex)
	return out
}

func compareHex(a, b core.Hex) int {
	if c := cmp.Compare(a.Q, b.Q); c != 0 {
		return c
	}
	return cmp.Compare(a.R, b.R)
}

// SetMode schedules a weapon mode change for the next phase.
func (g *Game) SetMode(id core.EntityID, slot int, mode string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != nil {
		return ErrTokenHeld
	}
	u, ok := g.units[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	m, ok := u.Mount(slot)
	if !ok {
		return fmt.Errorf("unit %d has no equipment in slot %d", id, slot)
	}
	w, err := g.catalog.Weapon(m.Type)
	if err != nil {
		return err
	}
	if !w.SupportsMode(mode) {
		return fmt.Errorf("%s does not support mode %q", w.Name, mode)
	}
	m.SetMode(mode, g.phase)
	return nil
}

// AdvancePhase moves to the next phase. Pending weapon modes take effect,
// heat buildup is cleared, flares burn out and smoke thins.
func (g *Game) AdvancePhase() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != nil {
		return g.phase, ErrTokenHeld
	}
	g.phase++
	for _, u := range g.units {
		for i := range u.Equipment {
			u.Equipment[i].CommitMode(g.phase)
		}
		u.HeatBuildup = 0
	}
	for h, t := range g.terrain {
		t.Illuminated = false
		if t.Smoke > 0 {
			t.Smoke--
		}
		g.terrain[h] = t
	}
	g.log.Append(report.NewBuilder("", g.phase).Add(report.MsgPhase, 0, g.phase).Entries()...)
	return g.phase, nil
}
