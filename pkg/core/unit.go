// pkg/core/unit.go
package core

import "time"

// EntityID identifies a unit on the board. Zero means no entity.
type EntityID int

// UnitKind is the broad unit class used for hit tables and damage rules.
type UnitKind string

const (
	KindMech     UnitKind = "mech"
	KindVehicle  UnitKind = "vehicle"
	KindInfantry UnitKind = "infantry"
)

// MoveMode is the movement a unit declared this turn.
type MoveMode string

const (
	MoveNone MoveMode = "none"
	MoveWalk MoveMode = "walk"
	MoveRun  MoveMode = "run"
	MoveJump MoveMode = "jump"
)

// Hex is an axial board coordinate.
type Hex struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// Location is one armored section of a unit.
type Location struct {
	Name      string `json:"name" yaml:"name"`
	Armor     int    `json:"armor" yaml:"armor"`
	RearArmor int    `json:"rearArmor,omitempty" yaml:"rearArmor"`
	HasRear   bool   `json:"hasRear,omitempty" yaml:"hasRear"`
	Structure int    `json:"structure" yaml:"structure"`
	Destroyed bool   `json:"destroyed,omitempty" yaml:"destroyed"`

	// ActuatorHits counts limb actuator criticals.
	ActuatorHits int `json:"actuatorHits,omitempty" yaml:"actuatorHits"`
}

// Unit is the authoritative state of a combat unit.
type Unit struct {
	ID         EntityID `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Owner      int      `json:"owner" yaml:"owner"`
	Kind       UnitKind `json:"kind" yaml:"kind"`
	Mechanized bool     `json:"mechanized,omitempty" yaml:"mechanized"`
	Gunnery    int      `json:"gunnery" yaml:"gunnery"`

	Position   Hex      `json:"position" yaml:"position"`
	Facing     int      `json:"facing" yaml:"facing"`
	Move       MoveMode `json:"move" yaml:"move"`
	HexesMoved int      `json:"hexesMoved" yaml:"hexesMoved"`

	Prone     bool `json:"prone,omitempty" yaml:"prone"`
	Immobile  bool `json:"immobile,omitempty" yaml:"immobile"`
	Shutdown  bool `json:"shutdown,omitempty" yaml:"shutdown"`
	Destroyed bool `json:"destroyed,omitempty" yaml:"destroyed"`

	Heat        int `json:"heat" yaml:"heat"`
	HeatBuildup int `json:"heatBuildup" yaml:"heatBuildup"`
	SensorHits  int `json:"sensorHits,omitempty" yaml:"sensorHits"`
	EngineHits  int `json:"engineHits,omitempty" yaml:"engineHits"`

	Locations []Location `json:"locations" yaml:"locations"`
	Equipment []Mounted  `json:"equipment" yaml:"equipment"`
}

// Clone returns a deep copy of the unit.
func (u *Unit) Clone() *Unit {
	c := *u
	c.Locations = append([]Location(nil), u.Locations...)
	c.Equipment = append([]Mounted(nil), u.Equipment...)
	return &c
}

// Location returns the named location.
func (u *Unit) Location(name string) (*Location, bool) {
	for i := range u.Locations {
		if u.Locations[i].Name == name {
			return &u.Locations[i], true
		}
	}
	return nil, false
}

// Mount returns the mounted equipment in the given slot.
func (u *Unit) Mount(slot int) (*Mounted, bool) {
	for i := range u.Equipment {
		if u.Equipment[i].Slot == slot {
			return &u.Equipment[i], true
		}
	}
	return nil, false
}

// MountsIn returns pointers to all equipment mounted in a location.
func (u *Unit) MountsIn(location string) []*Mounted {
	var out []*Mounted
	for i := range u.Equipment {
		if u.Equipment[i].Location == location {
			out = append(out, &u.Equipment[i])
		}
	}
	return out
}

// IsInfantry reports whether the unit is conventional infantry.
func (u *Unit) IsInfantry() bool {
	return u.Kind == KindInfantry
}

// TotalArmor sums front and rear armor over all locations.
func (u *Unit) TotalArmor() int {
	total := 0
	for _, l := range u.Locations {
		total += l.Armor + l.RearArmor
	}
	return total
}

// TotalStructure sums internal structure over all locations.
func (u *Unit) TotalStructure() int {
	total := 0
	for _, l := range u.Locations {
		total += l.Structure
	}
	return total
}

// Snapshot returns the unit's condition as of phase.
func (u *Unit) Snapshot(phase int, at time.Time) UnitState {
	c := u.Clone()
	return UnitState{
		UnitID:    u.ID,
		Name:      u.Name,
		Phase:     phase,
		Time:      at,
		Position:  u.Position,
		Heat:      u.Heat,
		Armor:     u.TotalArmor(),
		Structure: u.TotalStructure(),
		Destroyed: u.Destroyed,
		Locations: c.Locations,
		Equipment: c.Equipment,
	}
}
