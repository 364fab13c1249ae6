// pkg/core/mounted.go
package core

import (
	"errors"
	"fmt"
)

// ErrInsufficientAmmo is returned when a bin holds fewer shots than requested.
var ErrInsufficientAmmo = errors.New("insufficient ammo")

// NoSlot marks an unset equipment slot reference.
const NoSlot = -1

// Mounted is the mutable state of one piece of equipment on a unit.
// Weapons and ammo bins are both Mounted; bins carry Shots.
type Mounted struct {
	Slot     int    `json:"slot" yaml:"slot"`
	Type     string `json:"type" yaml:"type"`
	Location string `json:"location" yaml:"location"`

	Destroyed   bool `json:"destroyed,omitempty" yaml:"destroyed"`
	Jammed      bool `json:"jammed,omitempty" yaml:"jammed"`
	OneShotUsed bool `json:"oneShotUsed,omitempty" yaml:"oneShotUsed"`

	Mode        string `json:"mode,omitempty" yaml:"mode"`
	PendingMode string `json:"pendingMode,omitempty" yaml:"pendingMode"`
	PendingFrom int    `json:"pendingFrom,omitempty" yaml:"pendingFrom"`

	Shots      int `json:"shots,omitempty" yaml:"shots"`
	LinkedAmmo int `json:"linkedAmmo" yaml:"linkedAmmo"`
	FiredPhase int `json:"firedPhase,omitempty" yaml:"firedPhase"`

	// Artemis marks a launcher linked to an Artemis IV fire control system.
	Artemis bool `json:"artemis,omitempty" yaml:"artemis"`
}

// ShotsLeft returns the shots remaining in an ammo bin.
func (m *Mounted) ShotsLeft() int {
	return m.Shots
}

// DepleteAmmo removes n shots. The bin is left untouched on error.
func (m *Mounted) DepleteAmmo(n int) error {
	if n < 0 {
		return fmt.Errorf("deplete %d shots from slot %d: negative count", n, m.Slot)
	}
	if n > m.Shots {
		return fmt.Errorf("%w: slot %d has %d, need %d", ErrInsufficientAmmo, m.Slot, m.Shots, n)
	}
	m.Shots -= n
	return nil
}

// SetJammed jams the weapon. It stays jammed until Unjam.
func (m *Mounted) SetJammed() {
	m.Jammed = true
}

// Unjam clears a jam.
func (m *Mounted) Unjam() {
	m.Jammed = false
}

// CanFire reports whether the weapon itself is in a fireable state.
func (m *Mounted) CanFire() bool {
	return !m.Destroyed && !m.Jammed && !m.OneShotUsed
}

// FiredIn reports whether the weapon already fired in the given phase.
func (m *Mounted) FiredIn(phase int) bool {
	return phase > 0 && m.FiredPhase == phase
}

// SetMode schedules a mode change requested during phase. It applies to
// attacks declared in any later phase.
func (m *Mounted) SetMode(mode string, phase int) {
	if mode == m.Mode {
		m.PendingMode = ""
		m.PendingFrom = 0
		return
	}
	m.PendingMode = mode
	m.PendingFrom = phase + 1
}

// ModeAt returns the mode in effect for an attack declared in phase.
func (m *Mounted) ModeAt(phase int) string {
	if m.PendingMode != "" && phase >= m.PendingFrom {
		return m.PendingMode
	}
	return m.Mode
}

// CommitMode folds a pending mode into Mode once phase has reached it.
func (m *Mounted) CommitMode(phase int) bool {
	if m.PendingMode == "" || phase < m.PendingFrom {
		return false
	}
	m.Mode = m.PendingMode
	m.PendingMode = ""
	m.PendingFrom = 0
	return true
}
