// Package scenario reads battle scripts from YAML. A scenario seeds the
// server's game at startup and drives the replay command.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/phase"
	"github.com/mechcore/firecontrol/pkg/core"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a scenario that parsed but cannot be played.
var ErrInvalid = errors.New("invalid scenario")

// Load parses a scenario and checks it against cat. Ammo links left out of
// the file are filled in with the first compatible bin on the unit.
func Load(r io.Reader, cat *catalog.Catalog) (phase.Script, error) {
	var s phase.Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return phase.Script{}, fmt.Errorf("parse scenario: %w", err)
	}
	if err := Normalize(&s, cat); err != nil {
		return phase.Script{}, err
	}
	return s, nil
}

// LoadFile parses a scenario file.
func LoadFile(path string, cat *catalog.Catalog) (phase.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return phase.Script{}, fmt.Errorf("open scenario %q: %w", path, err)
	}
	defer f.Close()
	return Load(f, cat)
}

// Write encodes s as YAML.
func Write(w io.Writer, s phase.Script) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return enc.Close()
}

// Normalize validates the units in s and resolves their ammo links.
func Normalize(s *phase.Script, cat *catalog.Catalog) error {
	seen := make(map[core.EntityID]bool, len(s.Units))
	var errs []error
	for i, u := range s.Units {
		if u == nil {
			errs = append(errs, fmt.Errorf("%w: unit #%d is empty", ErrInvalid, i))
			continue
		}
		if u.ID <= 0 {
			errs = append(errs, fmt.Errorf("%w: unit %q has id %d", ErrInvalid, u.Name, u.ID))
		}
		if seen[u.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate unit id %d", ErrInvalid, u.ID))
		}
		seen[u.ID] = true
		if u.Kind == "" {
			u.Kind = core.KindMech
		}
		if u.Move == "" {
			u.Move = core.MoveNone
		}
		if err := linkAmmo(u, cat); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range s.Declarations {
		if !seen[d.Attacker] {
			errs = append(errs, fmt.Errorf("%w: declaration by unknown unit %d", ErrInvalid, d.Attacker))
		}
	}
	for _, m := range s.Modes {
		if !seen[m.Unit] {
			errs = append(errs, fmt.Errorf("%w: mode change for unknown unit %d", ErrInvalid, m.Unit))
		}
	}
	return errors.Join(errs...)
}

func linkAmmo(u *core.Unit, cat *catalog.Catalog) error {
	slots := make(map[int]bool, len(u.Equipment))
	for i := range u.Equipment {
		m := &u.Equipment[i]
		if slots[m.Slot] {
			return fmt.Errorf("%w: unit %d has two mounts in slot %d", ErrInvalid, u.ID, m.Slot)
		}
		slots[m.Slot] = true

		if cat.IsAmmo(m.Type) {
			m.LinkedAmmo = core.NoSlot
			continue
		}
		w, err := cat.Weapon(m.Type)
		if err != nil {
			return fmt.Errorf("%w: unit %d slot %d: %w", ErrInvalid, u.ID, m.Slot, err)
		}
		if !w.UsesAmmo() {
			m.LinkedAmmo = core.NoSlot
			continue
		}
		if compatibleBin(u, cat, w, m.LinkedAmmo) {
			continue
		}
		m.LinkedAmmo = core.NoSlot
		for _, bin := range u.Equipment {
			if compatibleBin(u, cat, w, bin.Slot) {
				m.LinkedAmmo = bin.Slot
				break
			}
		}
	}
	return nil
}

func compatibleBin(u *core.Unit, cat *catalog.Catalog, w catalog.Weapon, slot int) bool {
	bin, ok := u.Mount(slot)
	if !ok || bin.Destroyed {
		return false
	}
	a, err := cat.Ammo(bin.Type)
	if err != nil {
		return false
	}
	return cat.Compatible(w, a) == nil
}
