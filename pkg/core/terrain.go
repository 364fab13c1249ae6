// pkg/core/terrain.go
package core

// Woods is the woods density of a hex.
type Woods int

const (
	WoodsNone Woods = iota
	WoodsLight
	WoodsHeavy
)

func (w Woods) String() string {
	switch w {
	case WoodsLight:
		return "light woods"
	case WoodsHeavy:
		return "heavy woods"
	default:
		return "clear"
	}
}

// Terrain is the mutable state of one board hex.
type Terrain struct {
	Woods        Woods `json:"woods,omitempty" yaml:"woods"`
	PartialCover bool  `json:"partialCover,omitempty" yaml:"partialCover"`
	BuildingCF   int   `json:"buildingCF,omitempty" yaml:"buildingCF"`
	Smoke        int   `json:"smoke,omitempty" yaml:"smoke"`
	Illuminated  bool  `json:"illuminated,omitempty" yaml:"illuminated"`
}
