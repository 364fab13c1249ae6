// Package protocol defines the packets exchanged between the resolution
// server and its clients.
package protocol

import (
	"slices"

	"github.com/mechcore/firecontrol/pkg/core"
)

// Version is bumped on incompatible payload changes.
const Version = 1

// Command names. Every request is answered exactly once, in order, by a
// packet with the same command or by an Error naming it. Units,
// AttackResult, Reports and Phase are broadcasts.
const (
	// Hello opens a session. Client and server both send one.
	Hello = "hello"
	// DeclareAttack carries a declaration in; the server echoes the
	// accepted declaration with its assigned id.
	DeclareAttack = "declare_attack"
	// SetMode switches a weapon mode for the next phase.
	SetMode = "set_mode"
	// EndPhase asks the server to resolve the queued attacks. The reply
	// carries a PhasePayload with the new phase.
	EndPhase = "end_phase"
	// GetUnits requests unit snapshots. The reply carries a UnitsPayload.
	GetUnits = "get_units"
	// Units carries unit snapshots.
	Units = "units"
	// AttackResult carries one resolved attack.
	AttackResult = "attack_result"
	// Reports carries new battle log entries.
	Reports = "reports"
	// Phase announces the current phase.
	Phase = "phase"
	// Error reports a rejected packet.
	Error = "error"
)

// Commands lists every command name.
var Commands = []string{
	Hello, DeclareAttack, SetMode, EndPhase, GetUnits,
	Units, AttackResult, Reports, Phase, Error,
}

// Packet is the unit of transfer. Payload is encoded with the same
// marshaller as the packet itself.
type Packet struct {
	Command string `json:"command"`
	Payload []byte `json:"payload,omitempty"`
}

// HelloPayload introduces a peer.
type HelloPayload struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
	Owner   int    `json:"owner,omitempty"`
	Session string `json:"session,omitempty"`
	Phase   int    `json:"phase,omitempty"`
}

// DeclareAttackPayload carries one declaration.
type DeclareAttackPayload struct {
	Declaration core.Declaration `json:"declaration"`
}

// SetModePayload selects a weapon mode.
type SetModePayload struct {
	Unit core.EntityID `json:"unit"`
	Slot int           `json:"slot"`
	Mode string        `json:"mode"`
}

// UnitsPayload carries unit snapshots.
type UnitsPayload struct {
	Phase int              `json:"phase"`
	Units []core.UnitState `json:"units"`
}

// AttackResultPayload carries one resolved attack.
type AttackResultPayload struct {
	Result core.AttackResult `json:"result"`
}

// ReportsPayload carries battle log entries in sequence order.
type ReportsPayload struct {
	Reports []core.Report `json:"reports"`
}

// PhasePayload announces the phase now open for declarations.
type PhasePayload struct {
	Phase int `json:"phase"`
}

// ErrorPayload explains why a packet was rejected.
type ErrorPayload struct {
	Command string `json:"command"`
	Message string `json:"message"`
}

// IsKnown reports whether command is a protocol command.
func IsKnown(command string) bool {
	return slices.Contains(Commands, command)
}
