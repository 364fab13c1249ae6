package game

import (
	"testing"

	"github.com/mechcore/firecontrol/internal/dice"
	"github.com/mechcore/firecontrol/internal/report"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageIDs(reports []core.Report) []int {
	ids := make([]int, len(reports))
	for i, r := range reports {
		ids[i] = r.MessageID
	}
	return ids
}

func damage(t *testing.T, src dice.Source, u *core.Unit, hit core.Hit, amount int) (*core.Unit, []core.Report) {
	t.Helper()
	g := newTestGame(t, src, u)
	tok, cs := begin(t, g)
	defer tok.Release()
	hit.Target = u.ID
	reports, err := cs.DamageEntity(u.ID, hit, amount)
	require.NoError(t, err)
	require.NoError(t, g.Commit(tok, cs))
	out, _ := g.Entity(u.ID)
	return out, reports
}

func TestCriticalCount(t *testing.T) {
	want := map[int]int{2: 0, 7: 0, 8: 1, 9: 1, 10: 2, 11: 2, 12: 3}
	for roll, n := range want {
		assert.Equal(t, n, CriticalCount(roll), "roll %d", roll)
	}
}

func TestArmorThenStructure(t *testing.T) {
	u, reports := damage(t, dice.NewScripted(dice.Pairs(7)...), testMech(1, core.Hex{}), core.Hit{Location: LocCenterTorso}, 22)
	ct, _ := u.Location(LocCenterTorso)
	assert.Equal(t, 0, ct.Armor)
	assert.Equal(t, 14, ct.Structure)
	assert.Equal(t, 8, ct.RearArmor)
	assert.Equal(t, []int{report.MsgArmorDamage, report.MsgStructureDamage, report.MsgCriticalCheck}, messageIDs(reports))
}

func TestRearArmor(t *testing.T) {
	u, _ := damage(t, dice.NewScripted(1), testMech(1, core.Hex{}), core.Hit{Location: LocCenterTorso, Rear: true}, 5)
	ct, _ := u.Location(LocCenterTorso)
	assert.Equal(t, 20, ct.Armor)
	assert.Equal(t, 3, ct.RearArmor)
}

func TestTransferInward(t *testing.T) {
	// LA has no armor and 2 structure; 5 damage destroys it and 3 moves to LT.
	u, reports := damage(t, dice.NewScripted(1), testMech(1, core.Hex{}), core.Hit{Location: LocLeftArm}, 5)
	la, _ := u.Location(LocLeftArm)
	lt, _ := u.Location(LocLeftTorso)
	assert.True(t, la.Destroyed)
	assert.Equal(t, 0, lt.Armor)
	assert.Equal(t, 11, lt.Structure)
	assert.False(t, u.Destroyed)
	assert.Contains(t, messageIDs(reports), report.MsgTransfer)
	assert.Contains(t, messageIDs(reports), report.MsgLocationLost)
}

func TestDestroyedLocationPassesDamage(t *testing.T) {
	m := testMech(1, core.Hex{})
	m.Locations[4].Destroyed = true
	m.Locations[4].Structure = 0
	u, _ := damage(t, dice.NewScripted(1), m, core.Hit{Location: LocLeftArm}, 2)
	lt, _ := u.Location(LocLeftTorso)
	assert.Equal(t, 0, lt.Armor)
	assert.Equal(t, 12, lt.Structure)
}

func TestHeadDestroysMech(t *testing.T) {
	u, reports := damage(t, dice.NewScripted(1), testMech(1, core.Hex{}), core.Hit{Location: LocHead}, 12)
	assert.True(t, u.Destroyed)
	assert.Equal(t, report.MsgUnitDestroyed, reports[len(reports)-1].MessageID)
	assert.Equal(t, "Mech A destroyed: head destroyed", reports[len(reports)-1].Text)
}

func TestLocationLossDestroysEquipment(t *testing.T) {
	m := testMech(1, core.Hex{}, core.Mounted{Slot: 0, Type: "Medium Laser", Location: LocLeftArm})
	u, _ := damage(t, dice.NewScripted(1), m, core.Hit{Location: LocLeftArm}, 2)
	w, _ := u.Mount(0)
	assert.True(t, w.Destroyed)
}

func TestSideTorsoTakesArm(t *testing.T) {
	m := testMech(1, core.Hex{}, core.Mounted{Slot: 0, Type: "Medium Laser", Location: LocRightArm})
	u, _ := damage(t, dice.NewScripted(1), m, core.Hit{Location: LocRightTorso}, 27)
	rt, _ := u.Location(LocRightTorso)
	ra, _ := u.Location(LocRightArm)
	assert.True(t, rt.Destroyed)
	assert.True(t, ra.Destroyed)
	w, _ := u.Mount(0)
	assert.True(t, w.Destroyed)
}

func TestAmmoExplosion(t *testing.T) {
	m := testMech(1, core.Hex{}, core.Mounted{Slot: 3, Type: "AC/5 Ammo", Location: LocLeftTorso, Shots: 20})
	// crit check 8 -> one critical, slot pick, explosion of 100 internal damage
	src := dice.NewScripted(4, 4, 1)
	u, reports := damage(t, src, m, core.Hit{Location: LocLeftTorso}, 3)

	bin, _ := u.Mount(3)
	assert.True(t, bin.Destroyed)
	assert.Zero(t, bin.Shots)
	assert.True(t, u.Destroyed)
	assert.Contains(t, messageIDs(reports), report.MsgCritAmmo)

	var explosion core.Report
	for _, r := range reports {
		if r.MessageID == report.MsgCritAmmo {
			explosion = r
		}
	}
	assert.Equal(t, "AC/5 Ammo explodes for 100 damage", explosion.Text)
	assert.Equal(t, 1, explosion.Indent)
}

func TestInertAmmoDoesNotExplode(t *testing.T) {
	m := testMech(1, core.Hex{}, core.Mounted{Slot: 3, Type: "Gauss Ammo", Location: LocLeftTorso, Shots: 8})
	u, reports := damage(t, dice.NewScripted(4, 4, 1), m, core.Hit{Location: LocLeftTorso}, 3)
	bin, _ := u.Mount(3)
	assert.True(t, bin.Destroyed)
	assert.False(t, u.Destroyed)
	assert.NotContains(t, messageIDs(reports), report.MsgCritAmmo)
}

func TestEngineCriticals(t *testing.T) {
	// CT structure hit, crit roll 12, three engine hits
	src := dice.NewScripted(6, 6, 1, 1, 1)
	u, reports := damage(t, src, testMech(1, core.Hex{}), core.Hit{Location: LocCenterTorso}, 21)
	assert.Equal(t, 3, u.EngineHits)
	assert.True(t, u.Destroyed)
	assert.Equal(t, "Mech A destroyed: engine destroyed", reports[len(reports)-1].Text)
}

func TestThroughArmorCritical(t *testing.T) {
	// armor absorbs everything but the TAC still rolls
	src := dice.NewScripted(4, 4, 1)
	u, reports := damage(t, src, testMech(1, core.Hex{}), core.Hit{Location: LocHead, Critical: true}, 1)
	assert.Equal(t, 1, u.SensorHits)
	assert.Equal(t, []int{report.MsgArmorDamage, report.MsgCriticalCheck, report.MsgCritSensors}, messageIDs(reports))
}

func TestActuatorCritical(t *testing.T) {
	src := dice.NewScripted(4, 4, 1)
	m := testMech(1, core.Hex{})
	m.Locations[5].Armor = 0
	u, _ := damage(t, src, m, core.Hit{Location: LocRightArm}, 1)
	ra, _ := u.Location(LocRightArm)
	assert.Equal(t, 1, ra.ActuatorHits)
}

func TestInfantryTroopers(t *testing.T) {
	inf := &core.Unit{
		ID:        5,
		Name:      "Foot Platoon",
		Kind:      core.KindInfantry,
		Locations: []core.Location{{Name: LocTroopers, Structure: 28}},
	}
	u, _ := damage(t, dice.NewScripted(1), inf, core.Hit{Location: LocTroopers}, 10)
	tr, _ := u.Location(LocTroopers)
	assert.Equal(t, 18, tr.Structure)
	assert.False(t, u.Destroyed)

	u, reports := damage(t, dice.NewScripted(1), inf, core.Hit{Location: LocTroopers}, 40)
	assert.True(t, u.Destroyed)
	assert.Equal(t, "Foot Platoon destroyed: wiped out", reports[len(reports)-1].Text)
}

func TestVehicleLocationLoss(t *testing.T) {
	v := &core.Unit{
		ID:   6,
		Name: "Scorpion",
		Kind: core.KindVehicle,
		Locations: []core.Location{
			{Name: LocFront, Armor: 4, Structure: 2},
			{Name: LocLeft, Armor: 4, Structure: 2},
			{Name: LocRight, Armor: 4, Structure: 2},
			{Name: LocRear, Armor: 4, Structure: 2},
		},
	}
	u, _ := damage(t, dice.NewScripted(1), v, core.Hit{Location: LocFront}, 8)
	assert.True(t, u.Destroyed)
}

func TestDamageUnknownAndDestroyed(t *testing.T) {
	g := newTestGame(t, dice.NewScripted(1), testMech(1, core.Hex{}))
	tok, cs := begin(t, g)
	defer tok.Release()

	_, err := cs.DamageEntity(9, core.Hit{Location: LocHead}, 5)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	u, _ := cs.Entity(1)
	u.Destroyed = true
	reports, err := cs.DamageEntity(1, core.Hit{Location: LocHead}, 5)
	require.NoError(t, err)
	assert.Empty(t, reports)
}
