package game

import (
	"testing"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/dice"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/stretchr/testify/require"
)

func testMech(id core.EntityID, pos core.Hex, equipment ...core.Mounted) *core.Unit {
	return &core.Unit{
		ID:       id,
		Name:     "Mech " + string(rune('A'+id-1)),
		Kind:     core.KindMech,
		Gunnery:  4,
		Position: pos,
		Move:     core.MoveNone,
		Locations: []core.Location{
			{Name: LocHead, Armor: 9, Structure: 3},
			{Name: LocCenterTorso, Armor: 20, RearArmor: 8, HasRear: true, Structure: 16},
			{Name: LocLeftTorso, Armor: 2, RearArmor: 6, HasRear: true, Structure: 12},
			{Name: LocRightTorso, Armor: 15, RearArmor: 6, HasRear: true, Structure: 12},
			{Name: LocLeftArm, Armor: 0, Structure: 2},
			{Name: LocRightArm, Armor: 12, Structure: 8},
			{Name: LocLeftLeg, Armor: 15, Structure: 12},
			{Name: LocRightLeg, Armor: 15, Structure: 12},
		},
		Equipment: equipment,
	}
}

func newTestGame(t *testing.T, src dice.Source, units ...*core.Unit) *Game {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	g := New(cat, DefaultOptions(), src)
	for _, u := range units {
		require.NoError(t, g.AddUnit(u))
	}
	return g
}

func begin(t *testing.T, g *Game) (*Token, *ChangeSet) {
	t.Helper()
	tok, err := g.AcquireToken()
	require.NoError(t, err)
	cs, err := g.Begin(tok)
	require.NoError(t, err)
	return tok, cs
}
