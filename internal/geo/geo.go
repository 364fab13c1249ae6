package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/mechcore/firecontrol/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// HEX GRID
// Flat-topped hexes in axial coordinates, one unit from center to corner.
// Facing 0 is north (negative Y) and increases clockwise.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

var sqrt3 = math.Sqrt(3)

// directions lists axial offsets for facings 0-5.
var directions = [6]core.Hex{
	{Q: 0, R: -1},
	{Q: 1, R: -1},
	{Q: 1, R: 0},
	{Q: 0, R: 1},
	{Q: -1, R: 1},
	{Q: -1, R: 0},
}

// HexFromString parses "q,r" into a hex.
func HexFromString(coords string) (core.Hex, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return core.Hex{}, ErrInvalidCoordinates
	}
	q, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return core.Hex{}, ErrInvalidCoordinates
	}
	r, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return core.Hex{}, ErrInvalidCoordinates
	}
	return core.Hex{Q: q, R: r}, nil
}

// Distance returns the number of hexes between a and b.
func Distance(a, b core.Hex) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	return (abs(dq) + abs(dr) + abs(dq+dr)) / 2
}

// Neighbor returns the adjacent hex in the given facing.
func Neighbor(h core.Hex, facing int) core.Hex {
	d := directions[((facing%6)+6)%6]
	return core.Hex{Q: h.Q + d.Q, R: h.R + d.R}
}

// Center returns the planar center of a hex.
func Center(h core.Hex) geom.XY {
	return geom.XY{
		X: 1.5 * float64(h.Q),
		Y: sqrt3 * (float64(h.R) + float64(h.Q)/2),
	}
}

// Point returns the hex center as a point geometry.
func Point(h core.Hex) geom.Point {
	return Center(h).AsPoint()
}

// Polygon returns the hex outline.
func Polygon(h core.Hex) geom.Polygon {
	c := Center(h)
	coords := make([]float64, 0, 14)
	for i := 0; i <= 6; i++ {
		a := math.Pi / 3 * float64(i%6)
		coords = append(coords, c.X+math.Cos(a), c.Y+math.Sin(a))
	}
	ring := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	return geom.NewPolygon([]geom.LineString{ring})
}

// Bearing returns the clockwise angle in degrees from north, looking from
// one hex center to another.
func Bearing(from, to core.Hex) float64 {
	a := Center(from)
	b := Center(to)
	deg := math.Atan2(b.X-a.X, -(b.Y-a.Y)) * 180 / math.Pi
	deg = math.Round(deg*1e6) / 1e6
	if deg < 0 {
		deg += 360
	}
	return deg
}

// AttackSide returns the hit table column for an attack coming from
// attacker into a target at targetPos facing targetFacing.
func AttackSide(targetPos core.Hex, targetFacing int, attacker core.Hex) core.Side {
	if targetPos == attacker {
		return core.SideFront
	}
	rel := math.Mod(Bearing(targetPos, attacker)-float64(((targetFacing%6)+6)%6)*60+720, 360)
	switch {
	case rel <= 30 || rel >= 330:
		return core.SideFront
	case rel < 150:
		return core.SideRight
	case rel <= 210:
		return core.SideRear
	default:
		return core.SideLeft
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
