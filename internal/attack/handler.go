// Package attack resolves one declared weapon attack from validation to the
// committed change-set and its reports.
package attack

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/cluster"
	"github.com/mechcore/firecontrol/internal/dice"
	"github.com/mechcore/firecontrol/internal/game"
	"github.com/mechcore/firecontrol/internal/geo"
	"github.com/mechcore/firecontrol/internal/report"
	"github.com/mechcore/firecontrol/internal/tohit"
	"github.com/mechcore/firecontrol/pkg/core"
)

var (
	// ErrCannotFire is returned when an attack fails its preconditions.
	ErrCannotFire = errors.New("cannot fire")
	// ErrUnexpected wraps a panic recovered during resolution.
	ErrUnexpected = errors.New("unexpected failure")
	// ErrResolved is returned when a handler is resolved twice.
	ErrResolved = errors.New("attack already resolved")
)

// State is the position of a handler in its lifecycle.
type State int

const (
	Declared State = iota
	Validated
	ToHitResolved
	Rolled
	HitsCounted
	DamageApplied
	AmmoUpdated
	Reported
)

var stateNames = [...]string{"declared", "validated", "to_hit_resolved", "rolled", "hits_counted", "damage_applied", "ammo_updated", "reported"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Handler runs a single declaration through the resolution states. A
// handler is used once.
type Handler struct {
	g    *game.Game
	calc *tohit.Calculator
	decl core.Declaration
	log  *slog.Logger

	kind      Kind
	step      steps
	selectErr error
	state     State

	cs  *game.ChangeSet
	rb  *report.Builder
	src dice.Source

	attacker  *core.Unit
	target    *core.Unit
	targetPos core.Hex
	lo        tohit.Loadout
	distance  int
	bracket   catalog.Bracket

	toHit    tohit.ToHit
	roll     dice.Roll
	hit      bool
	glancing bool

	fired  bool
	burst  int
	shots  int
	jammed bool
	hits   int
	perHit int

	distribution []core.Hit
	damage       int
}

// New creates a handler for decl. The handler kind is fixed here.
func New(g *game.Game, calc *tohit.Calculator, decl core.Declaration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{g: g, calc: calc, decl: decl, log: logger, kind: KindStandard}
	if u, ok := g.Entity(decl.Attacker); ok {
		if _, ok := u.Mount(decl.Weapon); ok {
			lo, err := tohit.ResolveLoadout(g.Catalog(), u, decl)
			if err != nil {
				h.selectErr = err
			} else {
				h.kind = Select(lo.Weapon, lo.Ammo)
			}
		}
	}
	h.step = table[h.kind]
	return h
}

// Kind returns the selected handler kind.
func (h *Handler) Kind() Kind { return h.kind }

// State returns the handler state.
func (h *Handler) State() State { return h.state }

// Resolve runs the attack under tok and commits its change-set. Attacks that
// cannot fire return an aborted result and a nil error. Configuration errors
// and recovered panics discard the change-set, report the failure and
// return the error alongside the aborted result.
func (h *Handler) Resolve(tok *game.Token) (res core.AttackResult, err error) {
	if h.state != Declared {
		return core.AttackResult{}, ErrResolved
	}
	cs, err := h.g.Begin(tok)
	if err != nil {
		return core.AttackResult{}, err
	}
	h.cs = cs
	h.src = h.g.Dice()
	h.rb = report.NewBuilder(h.decl.ID, h.decl.Phase)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
		}
		if err != nil {
			res = h.abort(err)
		}
	}()

	if err := h.validate(); err != nil {
		if errors.Is(err, ErrCannotFire) {
			return h.cannotFire(err), nil
		}
		return core.AttackResult{}, err
	}
	if err := h.resolveToHit(); err != nil {
		return core.AttackResult{}, err
	}
	h.rollToHit()
	if err := h.countHits(); err != nil {
		return core.AttackResult{}, err
	}
	if err := h.applyDamage(); err != nil {
		return core.AttackResult{}, err
	}
	if err := h.updateAmmo(); err != nil {
		return core.AttackResult{}, err
	}
	if err := h.g.Commit(tok, h.cs); err != nil {
		return core.AttackResult{}, err
	}
	h.g.Log().Append(h.rb.Entries()...)
	h.state = Reported

	res = h.result()
	h.log.Debug("attack resolved",
		"attack", h.decl.ID,
		"handler", h.kind,
		"toHit", res.ToHit,
		"roll", res.Roll,
		"hits", res.Hits,
		"damage", res.Damage)
	return res, nil
}

func cannot(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCannotFire, fmt.Sprintf(format, args...))
}

func (h *Handler) validate() error {
	d := h.decl
	a, ok := h.cs.Entity(d.Attacker)
	if !ok {
		return cannot("attacker %d not on the board", d.Attacker)
	}
	h.attacker = a
	h.header()
	if a.Destroyed {
		return cannot("attacker destroyed")
	}
	if _, ok := a.Mount(d.Weapon); !ok {
		return cannot("no weapon in slot %d", d.Weapon)
	}
	if h.selectErr != nil {
		return h.selectErr
	}
	lo, err := tohit.ResolveLoadout(h.g.Catalog(), a, d)
	if err != nil {
		return err
	}
	h.lo = lo
	if h.kind == KindAntiMissile || !lo.Weapon.IsWeapon() {
		return cannot("%s is not a weapon", lo.Weapon.Name)
	}

	switch {
	case d.TargetsHex():
		h.targetPos = *d.TargetHex
	case d.Target == 0:
		return cannot("no target")
	default:
		t, ok := h.cs.Entity(d.Target)
		if !ok {
			return cannot("target %d not on the board", d.Target)
		}
		if t.Destroyed {
			return cannot("target already destroyed")
		}
		h.target = t
		h.targetPos = t.Position
	}

	m := lo.Mount
	switch {
	case m.Destroyed:
		return cannot("weapon destroyed")
	case m.Jammed:
		return cannot("weapon jammed")
	case m.FiredIn(d.Phase):
		return cannot("weapon already fired this phase")
	case m.OneShotUsed:
		return cannot("one-shot weapon already used")
	}
	if lo.Weapon.UsesAmmo() {
		if lo.AmmoMount == nil {
			return cannot("no ammo loaded")
		}
		if lo.AmmoMount.Destroyed || lo.AmmoMount.ShotsLeft() == 0 {
			return cannot("out of ammo")
		}
	}

	h.distance = geo.Distance(a.Position, h.targetPos)
	h.bracket = lo.Weapon.BracketAt(h.distance)
	h.state = Validated
	return nil
}

func (h *Handler) resolveToHit() error {
	th, err := h.calc.Compute(h.cs, h.decl)
	if err != nil {
		return err
	}
	h.toHit = th
	h.rb.Indent()
	if th.State == tohit.Normal {
		h.rb.Add(report.MsgToHit, h.decl.Attacker, th.Value, th.Desc())
	} else {
		h.rb.Add(report.MsgToHitSentinel, h.decl.Attacker, th.State, th.Cause)
	}
	h.state = ToHitResolved
	return nil
}

// rollToHit always draws the roll, sentinels included, so the dice stream
// does not depend on the outcome.
func (h *Handler) rollToHit() {
	h.roll = dice.Roll2D6(h.src)
	total := h.roll.Total()
	h.hit = h.toHit.Hits(total)
	h.glancing = h.g.Options().GlancingBlows && h.hit && h.toHit.State == tohit.Normal && total == h.toHit.Value

	h.rb.Add(report.MsgRoll, h.decl.Attacker, h.roll)
	if h.hit {
		h.rb.Add(report.MsgHit, h.decl.Attacker)
	} else {
		h.rb.Add(report.MsgMiss, h.decl.Attacker)
	}
	if h.glancing {
		h.rb.Add(report.MsgGlancing, h.decl.Attacker)
	}
	h.state = Rolled
}

func (h *Handler) countHits() error {
	h.fired = true
	h.burst = 1
	if h.step.specialChecks != nil {
		h.step.specialChecks(h)
	}
	if h.fired && h.hit && h.step.calcHits != nil {
		n, err := h.step.calcHits(h)
		if err != nil {
			return err
		}
		h.hits = n
	}
	if h.fired && h.lo.Weapon.UsesAmmo() && (h.hit || h.step.consumesOnMiss) {
		h.shots = h.burst
	}
	h.state = HitsCounted
	return nil
}

func (h *Handler) applyDamage() error {
	defer func() { h.state = DamageApplied }()
	if !h.fired || !h.hit {
		return nil
	}
	h.perHit = h.step.damagePerHit(h)
	h.rb.Indent()
	defer h.rb.Outdent()

	if h.step.area != nil {
		return h.step.area(h)
	}
	if h.hits == 0 {
		return nil
	}
	if h.target == nil {
		total := h.hits * h.perHit
		h.damage += total
		h.rb.Merge(h.cs.DamageBuilding(h.targetPos, total))
		return nil
	}
	if h.target.IsInfantry() {
		return h.infantryBlock(h.target, h.hits*h.perHit)
	}
	return h.grouped(h.target, h.hits, h.perHit, h.groupSize())
}

// grouped rolls one location per group of hits and applies it left to right.
// On an aimed shot the first group goes through the aimed placement.
func (h *Handler) grouped(target *core.Unit, hits, perHit, group int) error {
	side := geo.AttackSide(target.Position, target.Facing, h.attacker.Position)
	aimed := h.decl.Aim != core.AimNone && target == h.target
	for remaining := hits; remaining > 0; {
		n := min(group, remaining)
		remaining -= n
		var hit core.Hit
		if aimed {
			aimed = false
			hit = game.AimedHitLocation(target, side, h.decl.AimLocation, dice.Roll2D6(h.src).Total())
		} else {
			hit, _ = game.RollHitLocation(h.src, target, side)
		}
		hit.Damage = n * perHit
		if err := h.damageUnit(target, hit); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) damageUnit(target *core.Unit, hit core.Hit) error {
	name := hit.Location
	if hit.Rear {
		name += " (rear)"
	}
	h.rb.Add(report.MsgHitLocation, target.ID, hit.Damage, name)
	reports, err := h.cs.DamageEntity(target.ID, hit, hit.Damage)
	if err != nil {
		return err
	}
	h.rb.Indent().Merge(reports).Outdent()
	h.distribution = append(h.distribution, hit)
	h.damage += hit.Damage
	return nil
}

// infantryBlock folds an attack on conventional infantry into one block.
func (h *Handler) infantryBlock(target *core.Unit, base int) error {
	class, err := h.infantryClass()
	if err != nil {
		return err
	}
	dmg := cluster.DirectBlowInfantryDamage(h.src, float64(base), max(h.toHit.Margin(h.roll.Total()), 0)/3, class, target.Mechanized)
	h.rb.Add(report.MsgInfantryDamage, target.ID, dmg)
	hit := core.Hit{Location: game.LocTroopers, Damage: dmg, Target: target.ID}
	reports, err := h.cs.DamageEntity(target.ID, hit, dmg)
	if err != nil {
		return err
	}
	h.rb.Indent().Merge(reports).Outdent()
	h.distribution = append(h.distribution, hit)
	h.damage += dmg
	return nil
}

func (h *Handler) infantryClass() (cluster.DamageClass, error) {
	if h.step.infantryClass != "" {
		return cluster.ParseDamageClass(h.step.infantryClass)
	}
	c, err := cluster.ParseDamageClass(h.lo.Weapon.InfantryClass)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", tohit.ErrConfiguration, err)
	}
	return c, nil
}

func (h *Handler) updateAmmo() error {
	m := h.lo.Mount
	w := h.lo.Weapon
	m.FiredPhase = h.decl.Phase
	if h.fired {
		if h.shots > 0 {
			if err := h.lo.AmmoMount.DepleteAmmo(h.shots); err != nil {
				return err
			}
			h.rb.Add(report.MsgAmmoSpent, h.decl.Attacker, h.shots, h.lo.AmmoMount.ShotsLeft())
		}
		if w.HasFlag(catalog.FlagOneShot) {
			m.OneShotUsed = true
		}
		h.attacker.HeatBuildup += w.Heat * h.burst
	}
	h.state = AmmoUpdated
	return nil
}

func (h *Handler) header() {
	weapon := fmt.Sprintf("slot %d", h.decl.Weapon)
	if m, ok := h.attacker.Mount(h.decl.Weapon); ok {
		weapon = m.Type
	}
	target := fmt.Sprintf("unit %d", h.decl.Target)
	if h.decl.TargetsHex() {
		target = fmt.Sprintf("hex %d,%d", h.decl.TargetHex.Q, h.decl.TargetHex.R)
	} else if t, ok := h.g.Entity(h.decl.Target); ok {
		target = t.Name
	}
	h.rb.Add(report.MsgAttack, h.decl.Attacker, h.attacker.Name, weapon, target)
}

func (h *Handler) cannotFire(err error) core.AttackResult {
	h.cs = nil
	h.rb.Indent().Add(report.MsgCannotFire, h.decl.Attacker, reason(err))
	h.g.Log().Append(h.rb.Entries()...)
	h.state = Reported
	res := h.baseResult()
	res.Aborted = true
	res.Reason = reason(err)
	return res
}

func (h *Handler) abort(err error) core.AttackResult {
	h.cs = nil
	rb := report.NewBuilder(h.decl.ID, h.decl.Phase)
	if h.attacker != nil && h.rb.Len() > 0 {
		rb.Merge(h.rb.Entries()[:1])
	}
	rb.Indent().Add(report.MsgAttackAborted, h.decl.Attacker, err.Error())
	h.g.Log().Append(rb.Entries()...)
	h.state = Reported
	h.log.Error("attack aborted", "attack", h.decl.ID, "attacker", h.decl.Attacker, "error", err)

	res := h.baseResult()
	res.Aborted = true
	res.Reason = err.Error()
	return res
}

func reason(err error) string {
	return strings.TrimPrefix(err.Error(), ErrCannotFire.Error()+": ")
}

func (h *Handler) baseResult() core.AttackResult {
	res := core.AttackResult{
		DeclarationID: h.decl.ID,
		Phase:         h.decl.Phase,
		Attacker:      h.decl.Attacker,
		Target:        h.decl.Target,
		TargetHex:     h.decl.TargetHex,
		Handler:       string(h.kind),
		TargetPos:     h.targetPos,
	}
	if h.attacker != nil {
		res.AttackerPos = h.attacker.Position
		if m, ok := h.attacker.Mount(h.decl.Weapon); ok {
			res.Weapon = m.Type
		}
	}
	return res
}

func (h *Handler) result() core.AttackResult {
	res := h.baseResult()
	res.ToHit = h.toHit.Value
	res.ToHitState = h.toHit.State.String()
	res.Modifiers = h.toHit.Modifiers
	res.Roll = h.roll.Total()
	res.Margin = h.toHit.Margin(res.Roll)
	res.Hit = h.hit
	res.Glancing = h.glancing
	res.Hits = h.hits
	res.Distribution = h.distribution
	res.Damage = h.damage
	res.ShotsFired = h.shots
	res.Jammed = h.jammed
	return res
}
