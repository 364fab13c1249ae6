// pkg/core/attack.go
package core

// AimMode selects an aimed shot.
type AimMode string

const (
	AimNone              AimMode = ""
	AimTargetingComputer AimMode = "targeting_computer"
	AimImmobile          AimMode = "immobile"
)

// Declaration is a committed weapon attack. It is never mutated after the
// server accepts it.
type Declaration struct {
	ID          string   `json:"id" yaml:"id"`
	Attacker    EntityID `json:"attacker" yaml:"attacker"`
	Weapon      int      `json:"weapon" yaml:"weapon"`
	AmmoSlot    *int     `json:"ammoSlot,omitempty" yaml:"ammoSlot"`
	Target      EntityID `json:"target,omitempty" yaml:"target"`
	TargetHex   *Hex     `json:"targetHex,omitempty" yaml:"targetHex"`
	AimLocation string   `json:"aimLocation,omitempty" yaml:"aimLocation"`
	Aim         AimMode  `json:"aim,omitempty" yaml:"aim"`
	Spotter     EntityID `json:"spotter,omitempty" yaml:"spotter"`
	Indirect    bool     `json:"indirect,omitempty" yaml:"indirect"`
	Phase       int      `json:"phase" yaml:"phase"`
}

// TargetsHex reports whether the attack is aimed at a hex rather than a unit.
func (d Declaration) TargetsHex() bool {
	return d.TargetHex != nil && d.Target == 0
}

// Modifier is one to-hit adjustment as reported.
type Modifier struct {
	Delta int    `json:"delta"`
	Cause string `json:"cause"`
	Kind  string `json:"kind,omitempty"`
}

// Side is the table column a hit location is rolled on.
type Side string

const (
	SideFront Side = "front"
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideRear  Side = "rear"
)

// Hit is one entry of a hit distribution.
type Hit struct {
	Location string   `json:"location"`
	Rear     bool     `json:"rear,omitempty"`
	Critical bool     `json:"critical,omitempty"`
	Damage   int      `json:"damage"`
	Target   EntityID `json:"target"`
}

// AttackResult summarizes one resolved or aborted attack.
type AttackResult struct {
	DeclarationID string     `json:"declarationId"`
	Phase         int        `json:"phase"`
	Attacker      EntityID   `json:"attacker"`
	Target        EntityID   `json:"target"`
	TargetHex     *Hex       `json:"targetHex,omitempty"`
	Weapon        string     `json:"weapon"`
	Handler       string     `json:"handler"`
	ToHit         int        `json:"toHit"`
	ToHitState    string     `json:"toHitState"`
	Modifiers     []Modifier `json:"modifiers"`
	Roll          int        `json:"roll"`
	Margin        int        `json:"margin"`
	Hit           bool       `json:"hit"`
	Glancing      bool       `json:"glancing,omitempty"`
	Hits          int        `json:"hits"`
	Distribution  []Hit      `json:"distribution,omitempty"`
	Damage        int        `json:"damage"`
	ShotsFired    int        `json:"shotsFired"`
	Jammed        bool       `json:"jammed,omitempty"`
	Aborted       bool       `json:"aborted,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	AttackerPos   Hex        `json:"attackerPos"`
	TargetPos     Hex        `json:"targetPos"`
}
