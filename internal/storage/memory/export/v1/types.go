// Package v1 contains the v1 battle log export format.
package v1

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version     int            `json:"version"`
	SessionID   string         `json:"sessionId"`
	SessionName string         `json:"sessionName"`
	Tag         string         `json:"tag"`
	Seed        uint64         `json:"seed"`
	Options     map[string]any `json:"options"`
	StartTime   string         `json:"startTime"`
	EndPhase    int            `json:"endPhase"`
	Units       []Unit         `json:"units"`
	Events      [][]any        `json:"events"`
	Log         []Line         `json:"log"`
}

// Unit is one unit with its per-phase snapshots.
// States entries are [phase, [q, r], heat, armor, structure, destroyed].
type Unit struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	StartPhase int     `json:"startPhase"`
	States     [][]any `json:"states"`
}

// Line is one battle log line.
type Line struct {
	Seq    int    `json:"seq"`
	Phase  int    `json:"phase"`
	Attack string `json:"attack,omitempty"`
	Indent int    `json:"indent"`
	Text   string `json:"text"`
}
