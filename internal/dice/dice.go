// Package dice provides the seeded random source and six-sided dice rolls
// every resolution step draws from.
package dice

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
)

// Source is the randomness provider for dice rolls.
type Source interface {
	// Intn returns a non-negative int in [0, n).
	Intn(n int) int
}

// Seeded is a deterministic Source. The same seed yields the same stream.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded creates a PCG backed source.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn implements Source.
func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Scripted replays fixed die faces (1-6) in order and wraps around when the
// script runs out.
type Scripted struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewScripted creates a Scripted source. Faces outside 1-6 are clamped.
func NewScripted(faces ...int) *Scripted {
	if len(faces) == 0 {
		faces = []int{1}
	}
	return &Scripted{faces: faces}
}

// Intn implements Source. It maps the next face onto [0, n).
func (s *Scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.faces[s.next%len(s.faces)]
	s.next++
	v := f - 1
	if v < 0 {
		v = 0
	}
	if v >= n {
		v = n - 1
	}
	return v
}

// Used returns how many faces were consumed.
func (s *Scripted) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Pairs turns 2d6 totals into a face script, e.g. Pairs(8, 2) -> 4,4,1,1.
// Odd totals put the larger die first.
func Pairs(totals ...int) []int {
	faces := make([]int, 0, len(totals)*2)
	for _, t := range totals {
		if t < 2 {
			t = 2
		}
		if t > 12 {
			t = 12
		}
		a := (t + 1) / 2
		faces = append(faces, a, t-a)
	}
	return faces
}

// Roll is the record of one dice roll.
type Roll struct {
	Dice []int
}

// Total returns the sum of all dice.
func (r Roll) Total() int {
	total := 0
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String formats the roll as "8 (3+5)".
func (r Roll) String() string {
	parts := make([]string, len(r.Dice))
	for i, d := range r.Dice {
		parts[i] = strconv.Itoa(d)
	}
	return fmt.Sprintf("%d (%s)", r.Total(), strings.Join(parts, "+"))
}

// D6 rolls one six-sided die.
func D6(src Source) int {
	return src.Intn(6) + 1
}

// RollDice rolls n six-sided dice. A negative n rolls none.
func RollDice(src Source, n int) Roll {
	r := Roll{Dice: make([]int, max(n, 0))}
	for i := range r.Dice {
		r.Dice[i] = D6(src)
	}
	return r
}

// Roll2D6 is the canonical to-hit roll.
func Roll2D6(src Source) Roll {
	return RollDice(src, 2)
}
