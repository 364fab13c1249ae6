package tohit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAddSkipsZero(t *testing.T) {
	th := New(4, "gunnery skill")
	th.Add(0, "nothing")
	th.Add(2, "medium range")
	th.Add(-1, "targeting computer")

	assert.Equal(t, 5, th.Value)
	assert.Len(t, th.Modifiers, 3)
	assert.Equal(t, "4 (gunnery skill) +2 (medium range) -1 (targeting computer)", th.Desc())
}

func TestMargin(t *testing.T) {
	th := New(4, "gunnery skill")
	assert.Equal(t, 4, th.Margin(8))
	assert.Equal(t, -1, th.Margin(3))

	low := New(0, "gunnery skill")
	assert.Equal(t, 0, low.Margin(2), "target numbers below 2 count as 2")
}

func TestHits(t *testing.T) {
	th := New(7, "gunnery skill")
	assert.True(t, th.Hits(7))
	assert.False(t, th.Hits(6))

	th.Mark(AutomaticSuccess, "adjacent hex")
	assert.True(t, th.Hits(2))

	th.Mark(AutomaticFail, "shut down")
	assert.False(t, th.Hits(12))
}

func TestSentinelPrecedence(t *testing.T) {
	th := New(4, "gunnery skill")
	th.Mark(AutomaticSuccess, "adjacent hex")
	th.Mark(Impossible, "out of range")
	th.Mark(AutomaticFail, "shut down")
	th.Mark(Impossible, "line of sight blocked")

	assert.Equal(t, Impossible, th.State)
	assert.Equal(t, "out of range", th.Cause)
	assert.Len(t, th.Modifiers, 5, "every sentinel keeps its record")
}

func TestSentinelOrderIndependence(t *testing.T) {
	causes := map[State]string{
		AutomaticSuccess: "success",
		AutomaticFail:    "fail",
		Impossible:       "impossible",
	}
	rapid.Check(t, func(t *rapid.T) {
		states := rapid.SliceOfN(rapid.SampledFrom([]State{AutomaticSuccess, AutomaticFail, Impossible}), 1, 8).Draw(t, "states")
		deltas := rapid.SliceOfN(rapid.IntRange(-4, 4), len(states), len(states)).Draw(t, "deltas")

		th := New(4, "gunnery skill")
		strongest := Normal
		for i, s := range states {
			th.Add(deltas[i], "mod")
			th.Mark(s, causes[s])
			strongest = max(strongest, s)
		}
		if th.State != strongest {
			t.Fatalf("state %v, want %v", th.State, strongest)
		}
		if th.Cause != causes[strongest] {
			t.Fatalf("cause %q, want %q", th.Cause, causes[strongest])
		}
	})
}

func TestHeatAndMovementModifiers(t *testing.T) {
	heat := map[int]int{0: 0, 7: 0, 8: 1, 12: 1, 13: 2, 17: 3, 23: 3, 24: 4, 30: 4}
	for h, want := range heat {
		assert.Equal(t, want, HeatModifier(h), "heat %d", h)
	}
	moved := map[int]int{0: 0, 2: 0, 3: 1, 4: 1, 5: 2, 6: 2, 7: 3, 9: 3, 10: 4, 17: 4, 18: 5, 24: 5, 25: 6}
	for n, want := range moved {
		assert.Equal(t, want, MovementModifier(n), "moved %d", n)
	}
}
