// pkg/core/session.go
package core

import "time"

// Session is one recorded game.
type Session struct {
	ID        string
	Name      string
	Seed      uint64
	Options   map[string]any
	StartTime time.Time
	Tag       string
}

// UnitState is a per-phase snapshot of a unit's condition.
type UnitState struct {
	UnitID    EntityID   `json:"unitId"`
	Name      string     `json:"name"`
	Phase     int        `json:"phase"`
	Time      time.Time  `json:"time"`
	Position  Hex        `json:"position"`
	Heat      int        `json:"heat"`
	Armor     int        `json:"armor"`
	Structure int        `json:"structure"`
	Destroyed bool       `json:"destroyed,omitempty"`
	Locations []Location `json:"locations"`
	Equipment []Mounted  `json:"equipment"`
}

// UploadMetadata contains metadata for uploading a battle log.
type UploadMetadata struct {
	SessionName string
	Duration    float64
	Attacks     int
	Tag         string
}
