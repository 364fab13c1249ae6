package parser

import (
	"encoding/json"
	"testing"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/mechcore/firecontrol/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawPayload []byte

func (r rawPayload) Decode(v any) error {
	return json.Unmarshal(r, v)
}

func payload(t *testing.T, v any) rawPayload {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func newParser(t *testing.T) *Parser {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return NewParser(nil, cat)
}

func intPtr(v int) *int { return &v }

func TestParseDeclaration(t *testing.T) {
	p := newParser(t)
	hex := core.Hex{Q: 3, R: 1}

	tests := []struct {
		name    string
		decl    core.Declaration
		wantErr bool
	}{
		{"unit target", core.Declaration{Attacker: 1, Weapon: 0, Target: 2}, false},
		{"hex target", core.Declaration{Attacker: 1, Weapon: 2, TargetHex: &hex}, false},
		{"aimed", core.Declaration{Attacker: 1, Target: 2, Aim: core.AimTargetingComputer, AimLocation: "LA"}, false},
		{"indirect with spotter", core.Declaration{Attacker: 1, Target: 2, Indirect: true, Spotter: 3}, false},
		{"explicit ammo", core.Declaration{Attacker: 1, Target: 2, AmmoSlot: intPtr(4)}, false},
		{"no attacker", core.Declaration{Target: 2}, true},
		{"negative weapon", core.Declaration{Attacker: 1, Weapon: -1, Target: 2}, true},
		{"negative ammo", core.Declaration{Attacker: 1, Target: 2, AmmoSlot: intPtr(-2)}, true},
		{"no target", core.Declaration{Attacker: 1}, true},
		{"both targets", core.Declaration{Attacker: 1, Target: 2, TargetHex: &hex}, true},
		{"self target", core.Declaration{Attacker: 1, Target: 1}, true},
		{"aim without location", core.Declaration{Attacker: 1, Target: 2, Aim: core.AimImmobile}, true},
		{"location without aim", core.Declaration{Attacker: 1, Target: 2, AimLocation: "HD"}, true},
		{"aimed at hex", core.Declaration{Attacker: 1, TargetHex: &hex, Aim: core.AimImmobile, AimLocation: "HD"}, true},
		{"unknown aim", core.Declaration{Attacker: 1, Target: 2, Aim: "called", AimLocation: "HD"}, true},
		{"spotter on direct fire", core.Declaration{Attacker: 1, Target: 2, Spotter: 3}, true},
		{"self spotter", core.Declaration{Attacker: 1, Target: 2, Indirect: true, Spotter: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseDeclaration(payload(t, protocol.DeclareAttackPayload{Declaration: tt.decl}))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.decl.Attacker, got.Attacker)
			assert.Equal(t, tt.decl.Target, got.Target)
			assert.Equal(t, tt.decl.Weapon, got.Weapon)
		})
	}
}

func TestParseDeclaration_DropsClientID(t *testing.T) {
	p := newParser(t)
	got, err := p.ParseDeclaration(payload(t, protocol.DeclareAttackPayload{
		Declaration: core.Declaration{ID: "client-chosen", Attacker: 1, Target: 2},
	}))
	require.NoError(t, err)
	assert.Empty(t, got.ID)
}

func TestParseDeclaration_BadJSON(t *testing.T) {
	p := newParser(t)
	_, err := p.ParseDeclaration(rawPayload(`{"declaration":`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "error decoding payload")
}

func TestParseHello(t *testing.T) {
	p := newParser(t)

	hello, err := p.ParseHello(payload(t, protocol.HelloPayload{Name: "lance-1", Version: protocol.Version}))
	require.NoError(t, err)
	assert.Equal(t, "lance-1", hello.Name)

	_, err = p.ParseHello(payload(t, protocol.HelloPayload{Version: protocol.Version}))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = p.ParseHello(payload(t, protocol.HelloPayload{Name: "old", Version: protocol.Version + 1}))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseSetMode(t *testing.T) {
	tests := []struct {
		name    string
		in      protocol.SetModePayload
		wantErr bool
	}{
		{"hotload", protocol.SetModePayload{Unit: 1, Slot: 2, Mode: "hotload"}, false},
		{"reset to default", protocol.SetModePayload{Unit: 1, Slot: 2}, false},
		{"ultra", protocol.SetModePayload{Unit: 1, Slot: 0, Mode: "ultra"}, false},
		{"unknown mode", protocol.SetModePayload{Unit: 1, Slot: 0, Mode: "overdrive"}, true},
		{"bad unit", protocol.SetModePayload{Unit: 0, Slot: 0, Mode: "hotload"}, true},
		{"bad slot", protocol.SetModePayload{Unit: 1, Slot: -1, Mode: "hotload"}, true},
	}

	p := newParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseSetMode(payload(t, tt.in))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestParseSetMode_NoCatalog(t *testing.T) {
	p := NewParser(nil, nil)
	got, err := p.ParseSetMode(payload(t, protocol.SetModePayload{Unit: 1, Slot: 0, Mode: "anything"}))
	require.NoError(t, err)
	assert.Equal(t, "anything", got.Mode)
}

func TestParseReports(t *testing.T) {
	p := newParser(t)

	reports, err := p.ParseReports(payload(t, protocol.ReportsPayload{Reports: []core.Report{
		{Seq: 4, Text: "a"}, {Seq: 5, Text: "b"},
	}}))
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	_, err = p.ParseReports(payload(t, protocol.ReportsPayload{Reports: []core.Report{
		{Seq: 5}, {Seq: 5},
	}}))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseResultsAndPhase(t *testing.T) {
	p := newParser(t)

	res, err := p.ParseAttackResult(payload(t, protocol.AttackResultPayload{
		Result: core.AttackResult{DeclarationID: "d-1", Hit: true, Damage: 5},
	}))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Damage)

	_, err = p.ParseAttackResult(payload(t, protocol.AttackResultPayload{}))
	assert.ErrorIs(t, err, ErrInvalid)

	phase, err := p.ParsePhase(payload(t, protocol.PhasePayload{Phase: 3}))
	require.NoError(t, err)
	assert.Equal(t, 3, phase)

	_, err = p.ParsePhase(payload(t, protocol.PhasePayload{}))
	assert.ErrorIs(t, err, ErrInvalid)

	units, err := p.ParseUnits(payload(t, protocol.UnitsPayload{Phase: 2, Units: []core.UnitState{{UnitID: 1}}}))
	require.NoError(t, err)
	assert.Len(t, units.Units, 1)

	_, err = p.ParseUnits(payload(t, protocol.UnitsPayload{Units: []core.UnitState{{UnitID: 0}}}))
	assert.ErrorIs(t, err, ErrInvalid)

	e, err := p.ParseError(payload(t, protocol.ErrorPayload{Command: protocol.DeclareAttack, Message: "nope"}))
	require.NoError(t, err)
	assert.Equal(t, "nope", e.Message)
}
