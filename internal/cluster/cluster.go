// Package cluster implements the cluster hits table and infantry burst
// damage. Everything here is pure given a dice.Source.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mechcore/firecontrol/internal/dice"
)

// ErrUnknownRackSize is returned for a rack size missing from the table.
var ErrUnknownRackSize = errors.New("unknown rack size")

// advancedAMSShift is the roll shift applied by advanced anti-missile systems.
const advancedAMSShift = -4

// table maps rack size to hits for 2d6 results 2 through 12.
var table = map[int][11]int{
	2:  {1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2},
	3:  {1, 1, 1, 2, 2, 2, 2, 2, 3, 3, 3},
	4:  {1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4},
	5:  {1, 2, 2, 3, 3, 3, 3, 4, 4, 5, 5},
	6:  {2, 2, 3, 3, 4, 4, 4, 5, 5, 6, 6},
	7:  {2, 2, 3, 4, 4, 4, 4, 5, 6, 7, 7},
	8:  {3, 3, 4, 4, 5, 5, 5, 6, 6, 8, 8},
	9:  {3, 3, 4, 5, 5, 5, 5, 7, 7, 9, 9},
	10: {3, 3, 4, 6, 6, 6, 6, 8, 8, 10, 10},
	11: {4, 4, 5, 7, 7, 7, 7, 9, 9, 11, 11},
	12: {4, 4, 5, 8, 8, 8, 8, 10, 10, 12, 12},
	13: {4, 4, 5, 8, 8, 8, 8, 11, 11, 13, 13},
	14: {5, 5, 6, 9, 9, 9, 9, 11, 11, 14, 14},
	15: {5, 5, 6, 9, 9, 9, 9, 12, 12, 15, 15},
	16: {5, 5, 7, 10, 10, 10, 10, 13, 13, 16, 16},
	17: {5, 5, 7, 10, 10, 10, 10, 14, 14, 17, 17},
	18: {6, 6, 8, 11, 11, 11, 11, 14, 14, 18, 18},
	19: {6, 6, 8, 11, 11, 11, 11, 15, 15, 19, 19},
	20: {6, 6, 9, 12, 12, 12, 12, 16, 16, 20, 20},
	21: {7, 7, 9, 13, 13, 13, 13, 17, 17, 21, 21},
	22: {7, 7, 9, 14, 14, 14, 14, 18, 18, 22, 22},
	23: {7, 7, 10, 15, 15, 15, 15, 19, 19, 23, 23},
	24: {8, 8, 10, 16, 16, 16, 16, 20, 20, 24, 24},
	25: {8, 8, 10, 16, 16, 16, 16, 21, 21, 25, 25},
	26: {9, 9, 11, 17, 17, 17, 17, 21, 21, 26, 26},
	27: {9, 9, 11, 18, 18, 18, 18, 22, 22, 27, 27},
	28: {9, 9, 11, 19, 19, 19, 19, 23, 23, 28, 28},
	29: {10, 10, 12, 19, 19, 19, 19, 24, 24, 29, 29},
	30: {10, 10, 12, 20, 20, 20, 20, 25, 25, 30, 30},
	40: {12, 12, 18, 24, 24, 24, 24, 32, 32, 40, 40},
}

// twoD6Ways is the number of 2d6 combinations for totals 2 through 12.
var twoD6Ways = [11]int{1, 2, 3, 4, 5, 6, 5, 4, 3, 2, 1}

// Options are the situational switches for a cluster roll.
type Options struct {
	HotLoaded   bool
	AdvancedAMS bool
	AMSEngaged  bool
}

// Result records a cluster roll for reporting.
type Result struct {
	Roll        dice.Roll
	Effective   int
	TableHits   int
	Intercepted int
	Hits        int
}

// RackSizes returns the supported rack sizes in ascending order.
func RackSizes() []int {
	sizes := make([]int, 0, len(table))
	for size := range table {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	return sizes
}

// Supported reports whether rackSize has a table row.
func Supported(rackSize int) bool {
	_, ok := table[rackSize]
	return ok
}

// EffectiveRoll applies the modifier, advanced AMS and hot-loading to a raw
// 2d6 result and clamps it to [2,12].
func EffectiveRoll(roll, modifier int, opts Options) int {
	r := roll + modifier
	if opts.AMSEngaged && opts.AdvancedAMS {
		r += advancedAMSShift
	}
	if opts.HotLoaded {
		r++
	}
	return clamp(r, 2, 12)
}

// Lookup returns the table hits for a raw 2d6 roll. Standard AMS
// interception is not applied here since it needs its own die.
func Lookup(roll, rackSize, modifier int, opts Options) (int, error) {
	row, ok := table[rackSize]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRackSize, rackSize)
	}
	return row[EffectiveRoll(roll, modifier, opts)-2], nil
}

// MissilesHit rolls how many of rackSize missiles connect.
func MissilesHit(src dice.Source, rackSize, modifier int, opts Options) (Result, error) {
	if !Supported(rackSize) {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownRackSize, rackSize)
	}

	res := Result{Roll: dice.Roll2D6(src)}
	res.Effective = EffectiveRoll(res.Roll.Total(), modifier, opts)
	res.TableHits = table[rackSize][res.Effective-2]
	res.Hits = res.TableHits

	if opts.AMSEngaged && !opts.AdvancedAMS {
		res.Intercepted = dice.D6(src)
		res.Hits = max(0, res.Hits-res.Intercepted)
	}
	return res, nil
}

// Expectation returns the mean table hits for an unmodified roll.
func Expectation(rackSize int) (float64, error) {
	row, ok := table[rackSize]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRackSize, rackSize)
	}
	sum := 0
	for i, hits := range row {
		sum += hits * twoD6Ways[i]
	}
	return float64(sum) / 36, nil
}

// DamageClass selects the infantry burst formula for a weapon.
type DamageClass int

const (
	ClassDirect DamageClass = iota
	ClassClusterBallistic
	ClassPulse
	ClassClusterMissile
	ClassClusterMissile1D6
	ClassClusterMissile2D6
	ClassClusterMissile3D6
	ClassAreaEffect
)

var classNames = map[DamageClass]string{
	ClassDirect:            "direct",
	ClassClusterBallistic:  "cluster_ballistic",
	ClassPulse:             "pulse",
	ClassClusterMissile:    "cluster_missile",
	ClassClusterMissile1D6: "cluster_missile_1d6",
	ClassClusterMissile2D6: "cluster_missile_2d6",
	ClassClusterMissile3D6: "cluster_missile_3d6",
	ClassAreaEffect:        "area_effect",
}

func (c DamageClass) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// ParseDamageClass maps a catalog name onto a DamageClass.
func ParseDamageClass(name string) (DamageClass, error) {
	if name == "" {
		return ClassDirect, nil
	}
	for c, n := range classNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown infantry damage class %q", name)
}

// DirectBlowInfantryDamage converts a weapon's damage into damage against
// conventional infantry. A positive marginBonus shifts the class upward, up
// to the 3d6 missile class. Non-mechanized infantry halve missile and area
// damage, rounding up.
func DirectBlowInfantryDamage(src dice.Source, baseDamage float64, marginBonus int, class DamageClass, mechanized bool) int {
	if class != ClassAreaEffect && marginBonus > 0 {
		class = min(class+DamageClass(marginBonus), ClassClusterMissile3D6)
	}

	damage := baseDamage
	switch class {
	case ClassDirect:
		damage /= 10
	case ClassClusterBallistic:
		damage = damage/10 + 1
	case ClassPulse:
		damage = damage/10 + 2
	case ClassClusterMissile:
		damage /= 5
	case ClassClusterMissile1D6:
		damage = damage/5 + float64(dice.RollDice(src, 1).Total())
	case ClassClusterMissile2D6:
		damage = damage/5 + float64(dice.RollDice(src, 2).Total())
	case ClassClusterMissile3D6:
		damage = damage/5 + float64(dice.RollDice(src, 3).Total())
	case ClassAreaEffect:
		damage *= 2
	}

	damage = math.Ceil(damage)
	if !mechanized && class >= ClassClusterMissile {
		damage = math.Ceil(damage / 2)
	}
	return int(damage)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
