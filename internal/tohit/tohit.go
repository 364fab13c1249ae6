// Package tohit folds the modifiers of a weapon attack into a target number.
package tohit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mechcore/firecontrol/pkg/core"
)

// ErrConfiguration is returned when an attack references equipment the
// catalog cannot describe. There is no fallback target number.
var ErrConfiguration = errors.New("configuration error")

// State classifies a target number.
type State int

const (
	Normal State = iota
	AutomaticSuccess
	AutomaticFail
	Impossible
)

func (s State) String() string {
	switch s {
	case AutomaticSuccess:
		return "automatic_success"
	case AutomaticFail:
		return "automatic_fail"
	case Impossible:
		return "impossible"
	default:
		return "normal"
	}
}

// Modifier kinds.
const (
	KindBase     = "base"
	KindModifier = "modifier"
	KindSentinel = "sentinel"
)

// ToHit is a target number with the modifiers that produced it.
type ToHit struct {
	Value     int
	Modifiers []core.Modifier
	State     State
	Cause     string
}

// New starts a target number at base.
func New(base int, cause string) ToHit {
	return ToHit{
		Value:     base,
		Modifiers: []core.Modifier{{Delta: base, Cause: cause, Kind: KindBase}},
	}
}

// Add appends a numeric modifier. Zero deltas are not recorded.
func (t *ToHit) Add(delta int, cause string) {
	if delta == 0 {
		return
	}
	t.Value += delta
	t.Modifiers = append(t.Modifiers, core.Modifier{Delta: delta, Cause: cause, Kind: KindModifier})
}

// Mark records a sentinel. The strongest sentinel wins regardless of the
// order they were recorded in; among equals the first cause is kept.
func (t *ToHit) Mark(s State, cause string) {
	if s == Normal {
		return
	}
	t.Modifiers = append(t.Modifiers, core.Modifier{Cause: cause, Kind: KindSentinel + ":" + s.String()})
	if s > t.State {
		t.State = s
		t.Cause = cause
	}
}

// Margin returns the roll's margin of success against the target number.
// Target numbers below 2 count as 2.
func (t ToHit) Margin(roll int) int {
	return roll - max(2, t.Value)
}

// Hits reports whether roll hits.
func (t ToHit) Hits(roll int) bool {
	switch t.State {
	case AutomaticSuccess:
		return true
	case AutomaticFail, Impossible:
		return false
	}
	return roll >= t.Value
}

// Desc renders the modifier list as "4 (gunnery skill) +2 (medium range)".
func (t ToHit) Desc() string {
	var b strings.Builder
	for i, m := range t.Modifiers {
		if m.Kind != KindBase && m.Kind != KindModifier {
			continue
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		if m.Kind == KindBase {
			fmt.Fprintf(&b, "%d (%s)", m.Delta, m.Cause)
		} else {
			fmt.Fprintf(&b, "%+d (%s)", m.Delta, m.Cause)
		}
	}
	return b.String()
}
