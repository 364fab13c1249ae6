package tohit

import (
	"testing"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type board struct {
	units   map[core.EntityID]*core.Unit
	terrain map[core.Hex]core.Terrain
}

func (b *board) Entity(id core.EntityID) (*core.Unit, bool) {
	u, ok := b.units[id]
	return u, ok
}

func (b *board) TerrainAt(h core.Hex) core.Terrain {
	return b.terrain[h]
}

func (b *board) WoodedHexes() []core.Hex {
	var out []core.Hex
	for h, t := range b.terrain {
		if t.Woods != core.WoodsNone {
			out = append(out, h)
		}
	}
	return out
}

func mech(id core.EntityID, pos core.Hex, equipment ...core.Mounted) *core.Unit {
	return &core.Unit{
		ID:        id,
		Kind:      core.KindMech,
		Gunnery:   4,
		Position:  pos,
		Move:      core.MoveNone,
		Locations: []core.Location{
			{Name: "RA", Armor: 10, Structure: 8},
			{Name: "LA", Armor: 10, Structure: 8},
			{Name: "CT", Armor: 20, Structure: 16},
			{Name: "HD", Armor: 9, Structure: 3},
		},
		Equipment: equipment,
	}
}

func newBoard(units ...*core.Unit) *board {
	b := &board{units: map[core.EntityID]*core.Unit{}, terrain: map[core.Hex]core.Terrain{}}
	for _, u := range units {
		b.units[u.ID] = u
	}
	return b
}

func calculator(t *testing.T) *Calculator {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return NewCalculator(cat, Options{IndirectFire: true})
}

func laserAt(target core.Hex) (*board, core.Declaration) {
	a := mech(1, core.Hex{}, core.Mounted{Slot: 0, Type: "Medium Laser", Location: "RA"})
	b := mech(2, target)
	return newBoard(a, b), core.Declaration{Attacker: 1, Weapon: 0, Target: 2, Phase: 1}
}

func TestComputeRangeBrackets(t *testing.T) {
	c := calculator(t)
	tests := []struct {
		r     int
		value int
		state State
	}{
		{3, 4, Normal},
		{5, 6, Normal},
		{8, 8, Normal},
		{10, 4, Impossible},
	}
	for _, tt := range tests {
		b, d := laserAt(core.Hex{Q: 0, R: tt.r})
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, tt.state, th.State, "range %d", tt.r)
		if tt.state == Normal {
			assert.Equal(t, tt.value, th.Value, "range %d", tt.r)
		}
	}
}

func TestComputeMinimumRange(t *testing.T) {
	c := calculator(t)
	a := mech(1, core.Hex{}, core.Mounted{Slot: 0, Type: "PPC", Location: "RA"})
	b := mech(2, core.Hex{Q: 0, R: 2})
	th, err := c.Compute(newBoard(a, b), core.Declaration{Attacker: 1, Target: 2})
	require.NoError(t, err)
	assert.Equal(t, 4+2, th.Value, "PPC min range 3 at distance 2")
}

func TestComputeMovementStateAndHeat(t *testing.T) {
	c := calculator(t)
	b, d := laserAt(core.Hex{Q: 0, R: 3})
	a := b.units[1]
	a.Move = core.MoveRun
	a.Heat = 13
	a.SensorHits = 1
	a.Locations[0].ActuatorHits = 1
	tgt := b.units[2]
	tgt.Move = core.MoveJump
	tgt.HexesMoved = 5
	tgt.Prone = true

	th, err := c.Compute(b, d)
	require.NoError(t, err)
	// 4 gunnery +2 ran +2 moved +1 jumped +1 prone +2 heat +2 sensors +1 actuator
	assert.Equal(t, 15, th.Value)
	assert.Equal(t, AutomaticFail, th.State)
	assert.Equal(t, "target number greater than 12", th.Cause)
}

func TestComputeProneAdjacentAndImmobile(t *testing.T) {
	c := calculator(t)
	b, d := laserAt(core.Hex{Q: 0, R: 1})
	b.units[2].Prone = true
	b.units[2].Immobile = true
	th, err := c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, 4-2-4, th.Value)
	assert.Equal(t, 2, th.Margin(4))
}

func TestComputeTerrain(t *testing.T) {
	c := calculator(t)

	t.Run("target in heavy woods with smoke", func(t *testing.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 3})
		b.terrain[core.Hex{Q: 0, R: 3}] = core.Terrain{Woods: core.WoodsHeavy, Smoke: 1}
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, 4+2+1, th.Value)
	})

	t.Run("intervening light woods", func(t *testing.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 3})
		b.terrain[core.Hex{Q: 0, R: 1}] = core.Terrain{Woods: core.WoodsLight}
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, 5, th.Value)
	})

	t.Run("line of sight blocked", func(t *testing.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 3})
		b.terrain[core.Hex{Q: 0, R: 1}] = core.Terrain{Woods: core.WoodsLight}
		b.terrain[core.Hex{Q: 0, R: 2}] = core.Terrain{Woods: core.WoodsHeavy}
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, Impossible, th.State)
		assert.Equal(t, "line of sight blocked", th.Cause)
	})
}

func TestComputeSentinels(t *testing.T) {
	c := calculator(t)

	t.Run("self", func(t *testing.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 3})
		d.Target = 1
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, Impossible, th.State)
	})

	t.Run("destroyed target beats shutdown", func(t *testing.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 3})
		b.units[1].Shutdown = true
		b.units[2].Destroyed = true
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, Impossible, th.State)
		assert.Equal(t, "target already destroyed", th.Cause)
	})

	t.Run("shutdown", func(t *testing.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 3})
		b.units[1].Shutdown = true
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, AutomaticFail, th.State)
	})

	t.Run("adjacent hex", func(t *testing.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 3})
		d.Target = 0
		d.TargetHex = &core.Hex{Q: 0, R: 1}
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, AutomaticSuccess, th.State)
	})

	t.Run("missing target", func(t *testing.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 3})
		d.Target = 9
		th, err := c.Compute(b, d)
		require.NoError(t, err)
		assert.Equal(t, Impossible, th.State)
	})
}

func TestComputeTargetingComputer(t *testing.T) {
	c := calculator(t)
	b, d := laserAt(core.Hex{Q: 0, R: 3})
	b.units[1].Equipment = append(b.units[1].Equipment, core.Mounted{Slot: 1, Type: "Targeting Computer", Location: "RT"})

	th, err := c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, 3, th.Value)

	d.Aim = core.AimTargetingComputer
	d.AimLocation = "CT"
	th, err = c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, 7, th.Value, "aimed shots lose the computer bonus")

	d.AimLocation = "HD"
	th, err = c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, Impossible, th.State)
}

func TestComputeImmobileAim(t *testing.T) {
	c := calculator(t)
	b, d := laserAt(core.Hex{Q: 0, R: 3})
	d.Aim = core.AimImmobile
	d.AimLocation = "HD"

	th, err := c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, Impossible, th.State)

	b.units[2].Immobile = true
	th, err = c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, 4-4+7, th.Value)
}

func TestComputeAimAtMissingLocation(t *testing.T) {
	c := calculator(t)
	tests := []struct {
		name string
		aim  core.AimMode
	}{
		{"targeting computer", core.AimTargetingComputer},
		{"immobile", core.AimImmobile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, d := laserAt(core.Hex{Q: 0, R: 3})
			b.units[1].Equipment = append(b.units[1].Equipment, core.Mounted{Slot: 1, Type: "Targeting Computer", Location: "RT"})
			b.units[2].Immobile = true
			d.Aim = tt.aim
			d.AimLocation = "TURRET"

			th, err := c.Compute(b, d)
			require.NoError(t, err)
			assert.Equal(t, Impossible, th.State)
			assert.Contains(t, th.Cause, `no location "TURRET"`)
		})
	}
}

func TestComputeIndirect(t *testing.T) {
	c := calculator(t)
	a := mech(1, core.Hex{},
		core.Mounted{Slot: 0, Type: "LRM 10", Location: "LT", LinkedAmmo: 1},
		core.Mounted{Slot: 1, Type: "LRM 10 Ammo", Location: "LT", Shots: 12},
	)
	tgt := mech(2, core.Hex{Q: 0, R: 8})
	spotter := mech(3, core.Hex{Q: 0, R: 6})
	b := newBoard(a, tgt, spotter)
	b.terrain[core.Hex{Q: 0, R: 4}] = core.Terrain{Woods: core.WoodsHeavy}
	b.terrain[core.Hex{Q: 0, R: 5}] = core.Terrain{Woods: core.WoodsHeavy}
	d := core.Declaration{Attacker: 1, Weapon: 0, Target: 2, Indirect: true}

	th, err := c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, Impossible, th.State, "no spotter")

	d.Spotter = 3
	spotter.Move = core.MoveWalk
	th, err = c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, Normal, th.State)
	assert.Equal(t, 4+2+1+1, th.Value)

	c.Options.IndirectFire = false
	th, err = c.Compute(b, d)
	require.NoError(t, err)
	assert.Equal(t, Impossible, th.State)
}

func TestComputeVariableSpeedPulse(t *testing.T) {
	c := calculator(t)
	a := mech(1, core.Hex{}, core.Mounted{Slot: 0, Type: "Medium VSP Laser", Location: "RA"})
	for r, want := range map[int]int{2: 1, 4: 4, 7: 7} {
		b := newBoard(a, mech(2, core.Hex{Q: 0, R: r}))
		th, err := c.Compute(b, core.Declaration{Attacker: 1, Target: 2})
		require.NoError(t, err)
		assert.Equal(t, want, th.Value, "range %d", r)
	}
}

func TestComputeConfigurationErrors(t *testing.T) {
	c := calculator(t)

	a := mech(1, core.Hex{}, core.Mounted{Slot: 0, Type: "Death Ray", Location: "RA"})
	_, err := c.Compute(newBoard(a, mech(2, core.Hex{Q: 0, R: 2})), core.Declaration{Attacker: 1, Target: 2})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, catalog.ErrUnknownEquipment)

	slot := 1
	a = mech(1, core.Hex{},
		core.Mounted{Slot: 0, Type: "LRM 10", Location: "LT"},
		core.Mounted{Slot: 1, Type: "SRM 4 Ammo", Location: "LT", Shots: 25},
	)
	_, err = c.Compute(newBoard(a, mech(2, core.Hex{Q: 0, R: 8})), core.Declaration{Attacker: 1, Target: 2, AmmoSlot: &slot})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, catalog.ErrIncompatibleAmmo)

	_, err = c.Compute(newBoard(), core.Declaration{Attacker: 1})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestImpossibleSurvivesAnyModifiers(t *testing.T) {
	c := calculator(t)
	rapid.Check(t, func(t *rapid.T) {
		b, d := laserAt(core.Hex{Q: 0, R: 12})
		a := b.units[1]
		a.Move = rapid.SampledFrom([]core.MoveMode{core.MoveNone, core.MoveWalk, core.MoveRun, core.MoveJump}).Draw(t, "move")
		a.Heat = rapid.IntRange(0, 30).Draw(t, "heat")
		a.Shutdown = rapid.Bool().Draw(t, "shutdown")
		tgt := b.units[2]
		tgt.HexesMoved = rapid.IntRange(0, 30).Draw(t, "moved")
		tgt.Immobile = rapid.Bool().Draw(t, "immobile")
		tgt.Prone = rapid.Bool().Draw(t, "prone")

		th, err := c.Compute(b, d)
		if err != nil {
			t.Fatal(err)
		}
		if th.State != Impossible || th.Cause != "target out of range" {
			t.Fatalf("got %v (%s)", th.State, th.Cause)
		}
	})
}
