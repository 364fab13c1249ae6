package geo

import (
	"sort"

	"github.com/mechcore/firecontrol/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// LineOfFire returns the segment between two hex centers.
func LineOfFire(from, to core.Hex) geom.LineString {
	a := Center(from)
	b := Center(to)
	seq := geom.NewSequence([]float64{a.X, a.Y, b.X, b.Y}, geom.DimXY)
	return geom.NewLineString(seq)
}

// Intervening returns the candidate hexes crossed by the line of fire,
// excluding both endpoints, ordered by distance from the attacker.
func Intervening(from, to core.Hex, candidates []core.Hex) []core.Hex {
	if from == to {
		return nil
	}
	line := LineOfFire(from, to).AsGeometry()
	limit := Distance(from, to)

	var out []core.Hex
	for _, h := range candidates {
		if h == from || h == to {
			continue
		}
		if Distance(from, h) > limit || Distance(to, h) > limit {
			continue
		}
		if geom.Intersects(line, Polygon(h).AsGeometry()) {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Distance(from, out[i]) < Distance(from, out[j])
	})
	return out
}
