package game

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/mechcore/firecontrol/internal/report"
	"github.com/mechcore/firecontrol/pkg/core"
)

// ChangeSet stages the mutations of one attack on copies of the touched
// units and hexes. Nothing is visible to the game until Commit. Dropping a
// ChangeSet discards it.
type ChangeSet struct {
	g         *Game
	tok       *Token
	units     map[core.EntityID]*core.Unit
	terrain   map[core.Hex]core.Terrain
	committed bool
}

// Begin opens a change-set under tok.
func (g *Game) Begin(tok *Token) (*ChangeSet, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.checkLocked(tok); err != nil {
		return nil, err
	}
	return &ChangeSet{
		g:       g,
		tok:     tok,
		units:   make(map[core.EntityID]*core.Unit),
		terrain: make(map[core.Hex]core.Terrain),
	}, nil
}

// Commit applies cs atomically.
func (g *Game) Commit(tok *Token, cs *ChangeSet) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLocked(tok); err != nil {
		return err
	}
	if cs.g != g || cs.tok != tok {
		return ErrStaleToken
	}
	if cs.committed {
		return ErrCommitted
	}
	maps.Copy(g.units, cs.units)
	maps.Copy(g.terrain, cs.terrain)
	cs.committed = true
	return nil
}

// Entity returns the staged copy of a unit, cloning it on first touch.
func (cs *ChangeSet) Entity(id core.EntityID) (*core.Unit, bool) {
	if u, ok := cs.units[id]; ok {
		return u, true
	}
	cs.g.mu.RLock()
	u, ok := cs.g.units[id]
	if ok {
		u = u.Clone()
	}
	cs.g.mu.RUnlock()
	if !ok {
		return nil, false
	}
	cs.units[id] = u
	return u, true
}

// Touched returns the ids of staged units in order.
func (cs *ChangeSet) Touched() []core.EntityID {
	ids := slices.Collect(maps.Keys(cs.units))
	slices.Sort(ids)
	return ids
}

// TerrainAt returns the staged terrain of a hex.
func (cs *ChangeSet) TerrainAt(h core.Hex) core.Terrain {
	if t, ok := cs.terrain[h]; ok {
		return t
	}
	return cs.g.TerrainAt(h)
}

// WoodedHexes returns wooded hexes including staged changes.
func (cs *ChangeSet) WoodedHexes() []core.Hex {
	cs.g.mu.RLock()
	defer cs.g.mu.RUnlock()
	return woodedHexes(cs.g.terrain, cs.terrain)
}

// UnitsAt returns the live units standing in h, ordered by id.
func (cs *ChangeSet) UnitsAt(h core.Hex) []core.EntityID {
	cs.g.mu.RLock()
	defer cs.g.mu.RUnlock()
	var out []core.EntityID
	for id, u := range cs.g.units {
		if staged, ok := cs.units[id]; ok {
			u = staged
		}
		if u.Position == h && !u.Destroyed {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b core.EntityID) int { return cmp.Compare(a, b) })
	return out
}

// DamageBuilding reduces the construction factor of a building in h.
func (cs *ChangeSet) DamageBuilding(h core.Hex, amount int) []core.Report {
	t := cs.TerrainAt(h)
	if t.BuildingCF <= 0 || amount <= 0 {
		return nil
	}
	t.BuildingCF = max(t.BuildingCF-amount, 0)
	cs.terrain[h] = t
	return []core.Report{entry(report.MsgBuildingDamage, 0, 0, hexString(h), amount, t.BuildingCF)}
}

// ClearHex thins the woods in h by one density level.
func (cs *ChangeSet) ClearHex(h core.Hex) []core.Report {
	t := cs.TerrainAt(h)
	if t.Woods == core.WoodsNone {
		return nil
	}
	t.Woods--
	cs.terrain[h] = t
	return []core.Report{entry(report.MsgWoodsCleared, 0, 0, hexString(h), t.Woods.String())}
}

// Illuminate lights h until the end of the phase.
func (cs *ChangeSet) Illuminate(h core.Hex) {
	t := cs.TerrainAt(h)
	t.Illuminated = true
	cs.terrain[h] = t
}

// AddSmoke fills h with smoke lasting at least phases.
func (cs *ChangeSet) AddSmoke(h core.Hex, phases int) {
	t := cs.TerrainAt(h)
	t.Smoke = max(t.Smoke, phases)
	cs.terrain[h] = t
}

func hexString(h core.Hex) string {
	return fmt.Sprintf("%d,%d", h.Q, h.R)
}

func entry(id int, subject core.EntityID, indent int, args ...any) core.Report {
	e := report.NewBuilder("", 0).Add(id, subject, args...).Entries()[0]
	e.Indent = indent
	return e
}
