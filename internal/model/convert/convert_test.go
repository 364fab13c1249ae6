package convert

import (
	"math"
	"testing"
	"time"

	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAttack() core.AttackResult {
	return core.AttackResult{
		DeclarationID: "8d3c8f5e-4b7f-4a53-9f44-0f1b6c2f0c11",
		Phase:         3,
		Attacker:      1,
		Target:        2,
		Weapon:        "LRM 10",
		Handler:       "missile",
		ToHit:         7,
		ToHitState:    "normal",
		Modifiers:     []core.Modifier{{Delta: 4, Cause: "gunnery skill"}, {Delta: 2, Cause: "medium range", Kind: "range"}},
		Roll:          9,
		Margin:        2,
		Hit:           true,
		Hits:          6,
		Distribution:  []core.Hit{{Location: "CT", Damage: 5, Target: 2}, {Location: "LT", Rear: true, Damage: 1, Target: 2}},
		Damage:        6,
		ShotsFired:    1,
		AttackerPos:   core.Hex{Q: 0, R: 0},
		TargetPos:     core.Hex{Q: 2, R: 1},
	}
}

func TestAttackRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	original := sampleAttack()

	row := CoreToAttack("session-1", original, now)
	assert.Equal(t, "session-1", row.SessionID)
	assert.Equal(t, now, row.Time)
	assert.False(t, row.HexTarget)
	assert.Equal(t, 2, row.TargetQ)
	assert.Equal(t, 1, row.TargetR)

	back := AttackToCore(row)
	assert.Equal(t, original, back)
}

func TestAttackPositionIsHexCenter(t *testing.T) {
	row := CoreToAttack("s", sampleAttack(), time.Time{})

	coord, ok := row.TargetPos.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 3.0, coord.XY.X, 1e-9)
	assert.InDelta(t, 2*math.Sqrt(3), coord.XY.Y, 1e-9)

	coord, ok = row.AttackerPos.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 0.0, coord.XY.X)
	assert.Equal(t, 0.0, coord.XY.Y)
}

func TestAttackHexTarget(t *testing.T) {
	r := sampleAttack()
	r.Target = 0
	h := core.Hex{Q: 2, R: 1}
	r.TargetHex = &h
	r.Hit = false
	r.Distribution = nil

	row := CoreToAttack("s", r, time.Time{})
	assert.True(t, row.HexTarget)
	assert.JSONEq(t, "[]", string(row.Distribution))

	back := AttackToCore(row)
	require.NotNil(t, back.TargetHex)
	assert.Equal(t, h, *back.TargetHex)
	assert.Nil(t, back.Distribution)
}

func TestAbortedAttack(t *testing.T) {
	r := core.AttackResult{DeclarationID: "x", Phase: 1, Attacker: 4, Weapon: "AC/5", Aborted: true, Reason: "weapon jammed"}
	row := CoreToAttack("s", r, time.Time{})
	assert.True(t, row.Aborted)
	assert.Equal(t, "weapon jammed", row.Reason)
	assert.JSONEq(t, "[]", string(row.Modifiers))
	assert.Equal(t, r, AttackToCore(row))
}

func TestSessionRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	original := core.Session{
		ID:        "abc",
		Name:      "Lance drill",
		Seed:      math.MaxUint64 - 3,
		Options:   map[string]any{"jamRule": "cancel-burst", "glancingBlows": true},
		StartTime: start,
		Tag:       "Trials",
	}

	row := CoreToSession(original)
	assert.JSONEq(t, `{"jamRule":"cancel-burst","glancingBlows":true}`, string(row.Options))

	back := SessionToCore(row)
	assert.Equal(t, original, back)
}

func TestSessionWithoutOptions(t *testing.T) {
	row := CoreToSession(core.Session{ID: "a"})
	assert.Equal(t, "{}", string(row.Options))
	assert.Empty(t, SessionToCore(row).Options)
}

func TestReportRoundTrip(t *testing.T) {
	original := core.Report{Seq: 4, Phase: 2, Attack: "atk", Subject: 7, MessageID: 3010, Indent: 2, Text: "hits CT for 5"}
	row := CoreToReport("s", original, time.Time{})
	assert.Equal(t, "s", row.SessionID)
	assert.Equal(t, original, ReportToCore(row))
}

func TestUnitStateRoundTrip(t *testing.T) {
	original := core.UnitState{
		UnitID:    3,
		Name:      "Atlas",
		Phase:     5,
		Time:      time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		Position:  core.Hex{Q: -1, R: 4},
		Heat:      12,
		Armor:     250,
		Structure: 150,
		Locations: []core.Location{{Name: "CT", Armor: 40, RearArmor: 10, HasRear: true, Structure: 31}},
		Equipment: []core.Mounted{{Slot: 0, Type: "AC/20", Location: "RT", LinkedAmmo: 1}, {Slot: 1, Type: "AC/20 Ammo", Location: "LT", Shots: 5, LinkedAmmo: core.NoSlot}},
	}

	row := CoreToUnitState("s", original)
	assert.Equal(t, -1, row.Q)
	assert.Equal(t, 4, row.R)
	assert.False(t, row.Position.IsEmpty())

	assert.Equal(t, original, UnitStateToCore(row))
}
