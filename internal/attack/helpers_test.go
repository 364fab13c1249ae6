package attack

import (
	"testing"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/dice"
	"github.com/mechcore/firecontrol/internal/game"
	"github.com/mechcore/firecontrol/internal/tohit"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/stretchr/testify/require"
)

func armored(id core.EntityID, pos core.Hex, equipment ...core.Mounted) *core.Unit {
	locs := []string{game.LocHead, game.LocCenterTorso, game.LocLeftTorso, game.LocRightTorso,
		game.LocLeftArm, game.LocRightArm, game.LocLeftLeg, game.LocRightLeg}
	u := &core.Unit{
		ID:        id,
		Name:      []string{"", "Catapult", "Atlas", "Wasp", "Locust"}[id],
		Kind:      core.KindMech,
		Gunnery:   4,
		Position:  pos,
		Move:      core.MoveNone,
		Equipment: equipment,
	}
	for _, l := range locs {
		loc := core.Location{Name: l, Armor: 30, Structure: 10}
		if l == game.LocCenterTorso || l == game.LocLeftTorso || l == game.LocRightTorso {
			loc.RearArmor = 10
			loc.HasRear = true
		}
		u.Locations = append(u.Locations, loc)
	}
	return u
}

func platoon(id core.EntityID, pos core.Hex, troopers int) *core.Unit {
	return &core.Unit{
		ID:        id,
		Name:      "Foot Platoon",
		Kind:      core.KindInfantry,
		Position:  pos,
		Move:      core.MoveNone,
		Locations: []core.Location{{Name: game.LocTroopers, Structure: troopers}},
	}
}

// launcher mounts weapon in slot 0 linked to ammo in slot 1.
func launcher(weapon, ammo string, shots int) []core.Mounted {
	out := []core.Mounted{{Slot: 0, Type: weapon, Location: game.LocRightTorso, LinkedAmmo: core.NoSlot}}
	if ammo != "" {
		out[0].LinkedAmmo = 1
		out = append(out, core.Mounted{Slot: 1, Type: ammo, Location: game.LocLeftTorso, Shots: shots})
	}
	return out
}

type fixture struct {
	g    *game.Game
	calc *tohit.Calculator
}

func newFixture(t *testing.T, opts game.Options, src dice.Source, units ...*core.Unit) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	g := game.New(cat, opts, src)
	for _, u := range units {
		require.NoError(t, g.AddUnit(u))
	}
	return &fixture{g: g, calc: tohit.NewCalculator(cat, tohit.Options{IndirectFire: opts.IndirectFire})}
}

func (f *fixture) resolve(t *testing.T, d core.Declaration) (core.AttackResult, error) {
	t.Helper()
	if d.Phase == 0 {
		d.Phase = f.g.Phase()
	}
	if d.ID == "" {
		d.ID = "atk-1"
	}
	tok, err := f.g.AcquireToken()
	require.NoError(t, err)
	defer tok.Release()
	return New(f.g, f.calc, d, nil).Resolve(tok)
}

func (f *fixture) unit(t *testing.T, id core.EntityID) *core.Unit {
	t.Helper()
	u, ok := f.g.Entity(id)
	require.True(t, ok)
	return u
}

func (f *fixture) mount(t *testing.T, id core.EntityID, slot int) *core.Mounted {
	t.Helper()
	m, ok := f.unit(t, id).Mount(slot)
	require.True(t, ok)
	return m
}

func fire(target core.EntityID) core.Declaration {
	return core.Declaration{Attacker: 1, Weapon: 0, Target: target}
}

func script(totals ...int) *dice.Scripted {
	return dice.NewScripted(dice.Pairs(totals...)...)
}
