package tohit

import (
	"errors"
	"fmt"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/pkg/core"
)

// Loadout is the weapon and ammo a declaration fires, joined with their
// catalog descriptors.
type Loadout struct {
	Mount     *core.Mounted
	Weapon    catalog.Weapon
	AmmoMount *core.Mounted
	Ammo      *catalog.Ammo
}

// Munition returns the loaded munition, standard when no ammo is loaded.
func (l Loadout) Munition() catalog.Munition {
	if l.Ammo == nil {
		return catalog.MunitionStandard
	}
	return l.Ammo.MunitionOrStandard()
}

// Cluster reports whether the weapon delivers its damage in clusters.
func (l Loadout) Cluster() bool {
	switch l.Weapon.Category {
	case catalog.CategoryLRM, catalog.CategorySRM, catalog.CategoryMRM,
		catalog.CategoryStreakSRM, catalog.CategoryMortar:
		return true
	case catalog.CategoryLBX:
		return l.Munition() == catalog.MunitionCluster
	}
	return false
}

// ResolveLoadout looks up the declared weapon on u and the ammo it fires.
// An explicit ammo slot wins over the weapon's linked bin.
func ResolveLoadout(cat *catalog.Catalog, u *core.Unit, d core.Declaration) (Loadout, error) {
	m, ok := u.Mount(d.Weapon)
	if !ok {
		return Loadout{}, fmt.Errorf("%w: unit %d has no equipment in slot %d", ErrConfiguration, u.ID, d.Weapon)
	}
	w, err := cat.Weapon(m.Type)
	if err != nil {
		return Loadout{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	l := Loadout{Mount: m, Weapon: w}
	if !w.UsesAmmo() {
		return l, nil
	}

	slot := m.LinkedAmmo
	explicit := d.AmmoSlot != nil
	if explicit {
		slot = *d.AmmoSlot
	}
	bin, ok := u.Mount(slot)
	if !ok || bin == m {
		if explicit {
			return Loadout{}, fmt.Errorf("%w: unit %d has no ammo in slot %d", ErrConfiguration, u.ID, slot)
		}
		return l, nil
	}
	a, err := cat.Ammo(bin.Type)
	if err != nil {
		if !explicit && errors.Is(err, catalog.ErrUnknownEquipment) {
			return l, nil
		}
		return Loadout{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := cat.Compatible(w, a); err != nil {
		return Loadout{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	l.AmmoMount = bin
	l.Ammo = &a
	return l, nil
}

// HasTargetingComputer reports whether u carries a working targeting computer.
func HasTargetingComputer(cat *catalog.Catalog, u *core.Unit) bool {
	for i := range u.Equipment {
		m := &u.Equipment[i]
		if m.Destroyed {
			continue
		}
		w, err := cat.Weapon(m.Type)
		if err == nil && w.HasFlag(catalog.FlagTargetingComputer) {
			return true
		}
	}
	return false
}
