package attack

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/cluster"
	"github.com/mechcore/firecontrol/internal/game"
	"github.com/mechcore/firecontrol/internal/report"
	"github.com/mechcore/firecontrol/pkg/core"
)

const (
	groupByCategory = -1

	artemisBonus     = 2
	glancingCluster  = -4
	ultraJamRoll     = 2
	smokePhases      = 3
	hotloadMode      = "hotload"
	ultraMode        = "ultra"
	rotaryModeSuffix = "-shot"
)

// steps is the strategy table entry of a handler kind.
type steps struct {
	calcHits       func(h *Handler) (int, error)
	damagePerHit   func(h *Handler) int
	specialChecks  func(h *Handler)
	groupSize      int
	infantryClass  string
	consumesOnMiss bool
	area           func(h *Handler) error
}

var table map[Kind]steps

func init() {
	direct := steps{calcHits: directHits, damagePerHit: directDamage, groupSize: 1, consumesOnMiss: true}
	burst := steps{calcHits: burstHits, damagePerHit: directDamage, specialChecks: jamCheck, groupSize: 1, consumesOnMiss: true}
	mortar := steps{calcHits: clusterHits, damagePerHit: missileDamage, groupSize: 5, infantryClass: "area_effect", consumesOnMiss: true}

	table = map[Kind]steps{
		KindStandard:           direct,
		KindPulse:              direct,
		KindVariableSpeedPulse: direct,
		KindClusterMissile:     {calcHits: clusterHits, damagePerHit: missileDamage, groupSize: groupByCategory, consumesOnMiss: true},
		KindStreak:             {calcHits: streakHits, damagePerHit: missileDamage, specialChecks: streakLock, groupSize: 1},
		KindLBXCluster:         {calcHits: clusterHits, damagePerHit: pelletDamage, groupSize: 1, consumesOnMiss: true},
		KindUltra:              burst,
		KindRotary:             burst,
		KindMortar:             mortar,
		KindMortarAntiPersonnel: {
			calcHits: clusterHits, damagePerHit: antiPersonnelDamage, groupSize: 5, infantryClass: "area_effect", consumesOnMiss: true,
		},
		KindMortarAirburst: {damagePerHit: missileDamage, groupSize: 5, infantryClass: "area_effect", consumesOnMiss: true, area: airburst},
		KindMortarFlare:    {damagePerHit: noDamage, consumesOnMiss: true, area: flare},
		KindMortarSmoke:    {damagePerHit: noDamage, consumesOnMiss: true, area: smoke},
		KindAntiMissile:    {damagePerHit: noDamage},
	}
}

func (h *Handler) groupSize() int {
	if h.step.groupSize != groupByCategory {
		return max(h.step.groupSize, 1)
	}
	if h.lo.Weapon.Category == catalog.CategorySRM {
		return 1
	}
	return 5
}

func (h *Handler) opts() game.Options { return h.g.Options() }

// hits

func directHits(h *Handler) (int, error) {
	return 1, nil
}

func burstHits(h *Handler) (int, error) {
	if h.burst <= 1 {
		return 1, nil
	}
	res, err := cluster.MissilesHit(h.src, h.burst, 0, cluster.Options{})
	if err != nil {
		return 0, err
	}
	h.rb.Add(report.MsgClusterHits, h.decl.Attacker, res.Hits, h.burst, res.Effective)
	return res.Hits, nil
}

func rackSize(w catalog.Weapon) int {
	if w.Category == catalog.CategoryLBX {
		return w.Damage
	}
	return w.RackSize
}

func clusterHits(h *Handler) (int, error) {
	w := h.lo.Weapon
	rack := rackSize(w)
	mod := 0
	if h.lo.Mount.Artemis && w.HasFlag(catalog.FlagArtemisCapable) && h.lo.Munition() == catalog.MunitionStandard {
		mod += artemisBonus
	}
	if h.glancing {
		mod += glancingCluster
	}
	opts := cluster.Options{
		HotLoaded:   w.HasFlag(catalog.FlagHotLoadable) && h.lo.Mount.ModeAt(h.decl.Phase) == hotloadMode,
		AdvancedAMS: h.opts().AdvancedAMS,
	}
	if isMissile(w) {
		opts.AMSEngaged = h.engageAMS()
	}
	return h.rollCluster(rack, mod, opts)
}

func (h *Handler) rollCluster(rack, mod int, opts cluster.Options) (int, error) {
	res, err := cluster.MissilesHit(h.src, rack, mod, opts)
	if err != nil {
		return 0, err
	}
	h.rb.Add(report.MsgClusterHits, h.decl.Attacker, res.Hits, rack, res.Effective)
	if opts.AMSEngaged {
		intercepted := res.Intercepted
		if opts.AdvancedAMS {
			unshifted := opts
			unshifted.AMSEngaged = false
			base, err := cluster.Lookup(res.Roll.Total(), rack, mod, unshifted)
			if err != nil {
				return 0, err
			}
			intercepted = base - res.TableHits
		}
		h.rb.Add(report.MsgAMS, h.decl.Target, intercepted)
	}
	return res.Hits, nil
}

func streakHits(h *Handler) (int, error) {
	rack := h.lo.Weapon.RackSize
	if !h.engageAMS() {
		return rack, nil
	}
	return h.rollCluster(rack, 0, cluster.Options{AMSEngaged: true, AdvancedAMS: h.opts().AdvancedAMS})
}

func isMissile(w catalog.Weapon) bool {
	switch w.Category {
	case catalog.CategoryLRM, catalog.CategorySRM, catalog.CategoryMRM, catalog.CategoryStreakSRM:
		return true
	}
	return false
}

// engageAMS fires the target's first ready anti-missile system. Each system
// engages once per phase.
func (h *Handler) engageAMS() bool {
	t := h.target
	if t == nil {
		return false
	}
	cat := h.g.Catalog()
	for i := range t.Equipment {
		m := &t.Equipment[i]
		w, err := cat.Weapon(m.Type)
		if err != nil || w.Category != catalog.CategoryAMS || m.Destroyed || m.FiredIn(h.decl.Phase) {
			continue
		}
		bin := amsAmmo(cat, t, m, w)
		if bin == nil {
			continue
		}
		if err := bin.DepleteAmmo(1); err != nil {
			continue
		}
		m.FiredPhase = h.decl.Phase
		t.HeatBuildup += w.Heat
		return true
	}
	return false
}

func amsAmmo(cat *catalog.Catalog, u *core.Unit, ams *core.Mounted, w catalog.Weapon) *core.Mounted {
	if bin, ok := u.Mount(ams.LinkedAmmo); ok && bin != ams && usable(cat, bin, w) {
		return bin
	}
	for i := range u.Equipment {
		if bin := &u.Equipment[i]; usable(cat, bin, w) {
			return bin
		}
	}
	return nil
}

func usable(cat *catalog.Catalog, bin *core.Mounted, w catalog.Weapon) bool {
	a, err := cat.Ammo(bin.Type)
	return err == nil && a.AmmoType == w.AmmoType && !bin.Destroyed && bin.ShotsLeft() > 0
}

// special checks

func streakLock(h *Handler) {
	if !h.hit {
		h.fired = false
		h.rb.Add(report.MsgStreakNoLock, h.decl.Attacker)
	}
}

// burstSize returns the rounds an ultra or rotary mode fires.
func burstSize(kind Kind, mode string) int {
	switch kind {
	case KindUltra:
		if mode == ultraMode {
			return 2
		}
	case KindRotary:
		if n, err := strconv.Atoi(strings.TrimSuffix(mode, rotaryModeSuffix)); err == nil && n > 1 {
			return min(n, 6)
		}
	}
	return 1
}

// JamThreshold returns the highest to-hit roll that jams a burst.
func JamThreshold(kind Kind, burst int) int {
	if burst <= 1 {
		return 0
	}
	if kind == KindUltra {
		return ultraJamRoll
	}
	switch {
	case burst >= 6:
		return 4
	case burst >= 4:
		return 3
	default:
		return 2
	}
}

func jamCheck(h *Handler) {
	h.burst = min(burstSize(h.kind, h.lo.Mount.ModeAt(h.decl.Phase)), h.lo.AmmoMount.ShotsLeft())
	if h.burst <= 1 {
		h.burst = 1
		return
	}
	if h.roll.Total() > JamThreshold(h.kind, h.burst) {
		return
	}
	h.jammed = true
	h.lo.Mount.SetJammed()
	h.rb.Add(report.MsgJammed, h.decl.Attacker)
	switch h.opts().JamRule {
	case game.JamSecondShot:
		h.burst = 1
	default:
		h.fired = false
		h.burst = 0
	}
}

// damage per hit

func noDamage(*Handler) int { return 0 }

func pelletDamage(*Handler) int { return 1 }

func missileDamage(h *Handler) int { return h.lo.Weapon.Damage }

func antiPersonnelDamage(h *Handler) int {
	if h.target != nil && h.target.IsInfantry() {
		return 2 * h.lo.Weapon.Damage
	}
	return h.lo.Weapon.Damage
}

// directDamage applies minimum range falloff, the direct blow bonus and
// glancing blows, in that order.
func directDamage(h *Handler) int {
	w := h.lo.Weapon
	base := w.DamageAt(h.bracket)
	dmg := base
	if w.HasFlag(catalog.FlagMinRangeFalloff) && w.MinRange > 0 && h.distance <= w.MinRange {
		dmg = (base*h.distance + w.MinRange - 1) / w.MinRange
	}
	if h.opts().DirectBlows {
		if bonus := min(h.toHit.Margin(h.roll.Total()), dmg); bonus > 0 {
			dmg += bonus
			h.rb.Add(report.MsgDirectBlow, h.decl.Attacker, bonus)
		}
	}
	if h.glancing {
		dmg = max(dmg/2, 1)
	}
	return dmg
}

// area effects

func hexName(x core.Hex) string {
	return fmt.Sprintf("%d,%d", x.Q, x.R)
}

func airburst(h *Handler) error {
	total := h.lo.Weapon.RackSize * h.perHit
	h.hits = h.lo.Weapon.RackSize
	h.rb.Add(report.MsgAreaHex, h.decl.Attacker, hexName(h.targetPos))
	for _, id := range h.cs.UnitsAt(h.targetPos) {
		u, _ := h.cs.Entity(id)
		var err error
		if u.IsInfantry() {
			err = h.infantryBlock(u, total)
		} else {
			err = h.grouped(u, h.hits, h.perHit, h.groupSize())
		}
		if err != nil {
			return err
		}
	}
	h.rb.Merge(h.cs.DamageBuilding(h.targetPos, total))
	h.rb.Merge(h.cs.ClearHex(h.targetPos))
	return nil
}

func flare(h *Handler) error {
	h.hits = 1
	h.cs.Illuminate(h.targetPos)
	h.rb.Add(report.MsgFlare, h.decl.Attacker, hexName(h.targetPos))
	return nil
}

func smoke(h *Handler) error {
	h.hits = 1
	h.cs.AddSmoke(h.targetPos, smokePhases)
	h.rb.Add(report.MsgSmoke, h.decl.Attacker, hexName(h.targetPos))
	return nil
}
