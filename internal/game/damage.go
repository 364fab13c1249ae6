package game

import (
	"fmt"

	"github.com/mechcore/firecontrol/internal/dice"
	"github.com/mechcore/firecontrol/internal/report"
	"github.com/mechcore/firecontrol/pkg/core"
)

const (
	systemSensors  = "sensors"
	systemEngine   = "engine"
	systemActuator = "actuator"
)

// CriticalCount maps a critical check roll to the number of critical hits.
func CriticalCount(roll int) int {
	switch {
	case roll >= 12:
		return 3
	case roll >= 10:
		return 2
	case roll >= 8:
		return 1
	default:
		return 0
	}
}

// DamageEntity applies amount to target at hit. Armor absorbs first, then
// internal structure; excess transfers inward. Structure damage and
// through-armor hits roll for criticals.
func (cs *ChangeSet) DamageEntity(target core.EntityID, hit core.Hit, amount int) ([]core.Report, error) {
	u, ok := cs.Entity(target)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, target)
	}
	if amount <= 0 || u.Destroyed {
		return nil, nil
	}
	d := &damager{cs: cs, u: u}
	if u.IsInfantry() {
		d.troopers(amount)
	} else {
		d.apply(hit.Location, hit.Rear, amount, false, hit.Critical)
	}
	return d.reports, nil
}

type damager struct {
	cs      *ChangeSet
	u       *core.Unit
	reports []core.Report
	indent  int
}

func (d *damager) add(id int, args ...any) {
	d.reports = append(d.reports, entry(id, d.u.ID, d.indent, args...))
}

func (d *damager) apply(loc string, rear bool, amount int, internal, tac bool) {
	for amount > 0 && loc != "" && !d.u.Destroyed {
		l, ok := d.u.Location(loc)
		if !ok {
			return
		}
		if l.Destroyed {
			loc = d.transfer(loc, amount)
			continue
		}

		if !internal {
			armor := &l.Armor
			if rear && l.HasRear {
				armor = &l.RearArmor
			}
			if absorbed := min(amount, *armor); absorbed > 0 {
				*armor -= absorbed
				amount -= absorbed
				d.add(report.MsgArmorDamage, loc, absorbed, *armor)
			}
		}

		structureHit := false
		if amount > 0 {
			absorbed := min(amount, l.Structure)
			l.Structure -= absorbed
			amount -= absorbed
			if absorbed > 0 {
				structureHit = true
				d.add(report.MsgStructureDamage, loc, absorbed, l.Structure)
			}
			if l.Structure == 0 {
				d.destroyLocation(loc)
			}
		}
		if (structureHit || tac) && !l.Destroyed && !d.u.Destroyed {
			d.criticals(loc)
		}
		tac = false

		if amount > 0 {
			loc = d.transfer(loc, amount)
		}
	}
}

func (d *damager) transfer(from string, amount int) string {
	next := transferTarget(d.u.Kind, from)
	if next != "" {
		d.add(report.MsgTransfer, amount, next)
	}
	return next
}

func (d *damager) destroyLocation(loc string) {
	l, ok := d.u.Location(loc)
	if !ok || l.Destroyed {
		return
	}
	l.Destroyed = true
	l.Armor = 0
	l.RearArmor = 0
	l.Structure = 0
	for _, m := range d.u.MountsIn(loc) {
		m.Destroyed = true
	}
	d.add(report.MsgLocationLost, loc)

	switch d.u.Kind {
	case core.KindVehicle:
		d.destroyUnit(loc + " destroyed")
	case core.KindMech:
		switch loc {
		case LocHead:
			d.destroyUnit("head destroyed")
		case LocCenterTorso:
			d.destroyUnit("center torso destroyed")
		case LocLeftTorso:
			d.destroyLocation(LocLeftArm)
		case LocRightTorso:
			d.destroyLocation(LocRightArm)
		}
	}
}

func (d *damager) destroyUnit(reason string) {
	if d.u.Destroyed {
		return
	}
	d.u.Destroyed = true
	d.add(report.MsgUnitDestroyed, d.u.Name, reason)
}

func (d *damager) troopers(amount int) {
	l, ok := d.u.Location(LocTroopers)
	if !ok || l.Destroyed {
		return
	}
	lost := min(amount, l.Structure)
	l.Structure -= lost
	d.add(report.MsgTroopersLost, lost, l.Structure)
	if l.Structure == 0 {
		l.Destroyed = true
		d.destroyUnit("wiped out")
	}
}

type critSlot struct {
	mount  *core.Mounted
	system string
}

func (d *damager) critSlots(loc string) []critSlot {
	var slots []critSlot
	for _, m := range d.u.MountsIn(loc) {
		if !m.Destroyed {
			slots = append(slots, critSlot{mount: m})
		}
	}
	systems := func(name string, n int) {
		for range n {
			slots = append(slots, critSlot{system: name})
		}
	}
	if d.u.Kind == core.KindVehicle {
		systems(systemEngine, 1)
		systems(systemSensors, 1)
		return slots
	}
	switch loc {
	case LocHead:
		systems(systemSensors, 2)
	case LocCenterTorso:
		systems(systemEngine, 3)
	case LocLeftArm, LocRightArm, LocLeftLeg, LocRightLeg:
		systems(systemActuator, 2)
	}
	return slots
}

func (d *damager) criticals(loc string) {
	src := d.cs.g.src
	roll := dice.Roll2D6(src)
	n := CriticalCount(roll.Total())
	d.add(report.MsgCriticalCheck, roll.String(), n)
	d.indent++
	defer func() { d.indent-- }()
	for range n {
		slots := d.critSlots(loc)
		if len(slots) == 0 || d.u.Destroyed {
			return
		}
		d.critical(loc, slots[src.Intn(len(slots))])
	}
}

func (d *damager) critical(loc string, slot critSlot) {
	switch slot.system {
	case systemSensors:
		d.u.SensorHits++
		d.add(report.MsgCritSensors)
		return
	case systemEngine:
		d.u.EngineHits++
		d.add(report.MsgCritEngine, d.u.EngineHits)
		if d.u.EngineHits >= 3 {
			d.destroyUnit("engine destroyed")
		}
		return
	case systemActuator:
		if l, ok := d.u.Location(loc); ok {
			l.ActuatorHits++
		}
		d.add(report.MsgCritActuator, loc)
		return
	}

	m := slot.mount
	m.Destroyed = true
	cat := d.cs.g.catalog
	if !cat.IsAmmo(m.Type) {
		d.add(report.MsgCritWeapon, m.Type)
		return
	}
	a, _ := cat.Ammo(m.Type)
	if a.Inert || m.Shots == 0 || a.ExplosionDamage == 0 {
		d.add(report.MsgCritWeapon, m.Type)
		return
	}
	dmg := m.Shots * a.ExplosionDamage
	m.Shots = 0
	d.add(report.MsgCritAmmo, m.Type, dmg)
	d.indent++
	d.apply(loc, false, dmg, true, false)
	d.indent--
}
