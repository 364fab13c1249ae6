package tohit

import (
	"fmt"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/geo"
	"github.com/mechcore/firecontrol/pkg/core"
)

// View is the read side of the game state the calculator needs.
type View interface {
	Entity(id core.EntityID) (*core.Unit, bool)
	TerrainAt(h core.Hex) core.Terrain
	WoodedHexes() []core.Hex
}

// Options toggles optional to-hit rules.
type Options struct {
	IndirectFire bool
}

// Calculator computes target numbers for weapon attacks.
type Calculator struct {
	Catalog *catalog.Catalog
	Options Options
}

// NewCalculator creates a Calculator.
func NewCalculator(cat *catalog.Catalog, opts Options) *Calculator {
	return &Calculator{Catalog: cat, Options: opts}
}

const headLocation = "HD"

// Compute returns the target number for d against the current view.
// Modifiers are recorded in a fixed order.
func (c *Calculator) Compute(v View, d core.Declaration) (ToHit, error) {
	attacker, ok := v.Entity(d.Attacker)
	if !ok {
		return ToHit{}, fmt.Errorf("%w: attacker %d not found", ErrConfiguration, d.Attacker)
	}
	lo, err := ResolveLoadout(c.Catalog, attacker, d)
	if err != nil {
		return ToHit{}, err
	}

	th := New(attacker.Gunnery, "gunnery skill")

	var target *core.Unit
	targetPos := attacker.Position
	switch {
	case d.TargetsHex():
		targetPos = *d.TargetHex
	default:
		t, ok := v.Entity(d.Target)
		if !ok {
			th.Mark(Impossible, "no such target")
			return th, nil
		}
		target = t
		targetPos = t.Position
	}
	dist := geo.Distance(attacker.Position, targetPos)

	// declaration
	if target != nil && target.ID == attacker.ID {
		th.Mark(Impossible, "cannot target self")
	}
	if target != nil && target.Destroyed {
		th.Mark(Impossible, "target already destroyed")
	}
	if attacker.Shutdown {
		th.Mark(AutomaticFail, "attacker is shut down")
	}
	if target == nil && dist <= 1 {
		th.Mark(AutomaticSuccess, "targeting adjacent hex")
	}

	c.rangeMods(&th, lo.Weapon, dist)
	attackerMovement(&th, attacker)
	if target != nil {
		targetMovement(&th, target)
	}
	c.terrainMods(&th, v, attacker.Position, targetPos, target != nil, d.Indirect)
	if target != nil {
		targetState(&th, target, dist)
	}
	attackerState(&th, attacker, lo.Mount)

	// equipment
	if n := len(lo.Weapon.ToHitByRange); n == 3 {
		if b := lo.Weapon.BracketAt(dist); b != catalog.BracketOut {
			idx := max(int(b)-int(catalog.BracketShort), 0)
			th.Add(lo.Weapon.ToHitByRange[idx], "weapon to-hit modifier")
		}
	} else {
		th.Add(lo.Weapon.ToHitMod, "weapon to-hit modifier")
	}
	if lo.Ammo != nil {
		th.Add(lo.Ammo.ToHitMod, "ammunition to-hit modifier")
	}
	hasTC := HasTargetingComputer(c.Catalog, attacker)
	if hasTC && d.Aim != core.AimTargetingComputer && lo.Weapon.HasFlag(catalog.FlagDirectFire) && !lo.Cluster() {
		th.Add(-1, "targeting computer")
	}

	if d.Indirect {
		c.indirectMods(&th, v, lo.Weapon, d.Spotter)
	}
	aimMods(&th, d, target, hasTC)

	if th.State == Normal && th.Value > 12 {
		th.Mark(AutomaticFail, "target number greater than 12")
	}
	return th, nil
}

func (c *Calculator) rangeMods(th *ToHit, w catalog.Weapon, dist int) {
	switch w.BracketAt(dist) {
	case catalog.BracketOut:
		th.Mark(Impossible, "target out of range")
	case catalog.BracketMinimum:
		th.Add(w.MinRange-dist+1, "minimum range")
	case catalog.BracketMedium:
		th.Add(2, "medium range")
	case catalog.BracketLong:
		th.Add(4, "long range")
	}
}

func attackerMovement(th *ToHit, u *core.Unit) {
	switch u.Move {
	case core.MoveWalk:
		th.Add(1, "attacker walked")
	case core.MoveRun:
		th.Add(2, "attacker ran")
	case core.MoveJump:
		th.Add(3, "attacker jumped")
	}
}

// MovementModifier returns the target movement modifier for hexes moved.
func MovementModifier(hexes int) int {
	switch {
	case hexes <= 2:
		return 0
	case hexes <= 4:
		return 1
	case hexes <= 6:
		return 2
	case hexes <= 9:
		return 3
	case hexes <= 17:
		return 4
	case hexes <= 24:
		return 5
	default:
		return 6
	}
}

func targetMovement(th *ToHit, u *core.Unit) {
	th.Add(MovementModifier(u.HexesMoved), fmt.Sprintf("target moved %d hexes", u.HexesMoved))
	if u.Move == core.MoveJump {
		th.Add(1, "target jumped")
	}
}

func (c *Calculator) terrainMods(th *ToHit, v View, from, to core.Hex, unitTarget, indirect bool) {
	t := v.TerrainAt(to)
	if unitTarget {
		switch t.Woods {
		case core.WoodsLight:
			th.Add(1, "target in light woods")
		case core.WoodsHeavy:
			th.Add(2, "target in heavy woods")
		}
		if t.PartialCover {
			th.Add(1, "target has partial cover")
		}
		if t.Smoke > 0 {
			th.Add(1, "target in smoke")
		}
	}
	if indirect {
		return
	}
	woods := 0
	for _, h := range geo.Intervening(from, to, v.WoodedHexes()) {
		switch v.TerrainAt(h).Woods {
		case core.WoodsLight:
			woods++
		case core.WoodsHeavy:
			woods += 2
		}
	}
	if woods >= 3 {
		th.Mark(Impossible, "line of sight blocked")
		return
	}
	th.Add(woods, "intervening woods")
}

func targetState(th *ToHit, u *core.Unit, dist int) {
	if u.Prone {
		if dist <= 1 {
			th.Add(-2, "target prone and adjacent")
		} else {
			th.Add(1, "target prone")
		}
	}
	if u.Immobile {
		th.Add(-4, "target immobile")
	}
}

// HeatModifier returns the to-hit penalty for a heat level.
func HeatModifier(heat int) int {
	switch {
	case heat >= 24:
		return 4
	case heat >= 17:
		return 3
	case heat >= 13:
		return 2
	case heat >= 8:
		return 1
	default:
		return 0
	}
}

func attackerState(th *ToHit, u *core.Unit, weapon *core.Mounted) {
	th.Add(HeatModifier(u.Heat), "heat")
	th.Add(2*u.SensorHits, "sensor damage")
	if weapon.Location == "LA" || weapon.Location == "RA" {
		if loc, ok := u.Location(weapon.Location); ok {
			th.Add(loc.ActuatorHits, "arm actuator damage")
		}
	}
}

func (c *Calculator) indirectMods(th *ToHit, v View, w catalog.Weapon, spotterID core.EntityID) {
	if !c.Options.IndirectFire {
		th.Mark(Impossible, "indirect fire not allowed")
		return
	}
	if !w.HasFlag(catalog.FlagIndirect) {
		th.Mark(Impossible, "weapon cannot fire indirectly")
		return
	}
	spotter, ok := v.Entity(spotterID)
	if !ok || spotterID == 0 || spotter.Destroyed {
		th.Mark(Impossible, "indirect fire requires a spotter")
		return
	}
	th.Add(1, "indirect fire")
	if spotter.Move != core.MoveNone && spotter.Move != "" {
		th.Add(1, "spotter moved")
	}
}

func aimMods(th *ToHit, d core.Declaration, target *core.Unit, hasTC bool) {
	switch d.Aim {
	case core.AimNone:
		return
	case core.AimTargetingComputer:
		switch {
		case !hasTC:
			th.Mark(Impossible, "aimed shot requires a targeting computer")
		case target == nil:
			th.Mark(Impossible, "aimed shot requires a unit target")
		case !hasLocation(target, d.AimLocation):
			th.Mark(Impossible, fmt.Sprintf("target has no location %q", d.AimLocation))
		case d.AimLocation == headLocation:
			th.Mark(Impossible, "targeting computer cannot aim at the head")
		default:
			th.Add(3, "aimed shot")
		}
	case core.AimImmobile:
		switch {
		case target == nil:
			th.Mark(Impossible, "aimed shot requires a unit target")
		case !target.Immobile:
			th.Mark(Impossible, "aimed shot requires an immobile target")
		case !hasLocation(target, d.AimLocation):
			th.Mark(Impossible, fmt.Sprintf("target has no location %q", d.AimLocation))
		case d.AimLocation == headLocation:
			th.Add(7, "aimed shot at head")
		default:
			th.Add(3, "aimed shot")
		}
	default:
		th.Mark(Impossible, fmt.Sprintf("unknown aim mode %q", d.Aim))
	}
}

func hasLocation(u *core.Unit, name string) bool {
	_, ok := u.Location(name)
	return ok
}
