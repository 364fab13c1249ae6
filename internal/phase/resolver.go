// Package phase runs the firing phase: declarations are queued, then
// resolved one at a time under the turn token and recorded.
package phase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mechcore/firecontrol/internal/attack"
	"github.com/mechcore/firecontrol/internal/game"
	"github.com/mechcore/firecontrol/internal/influx"
	"github.com/mechcore/firecontrol/internal/monitor"
	"github.com/mechcore/firecontrol/internal/queue"
	"github.com/mechcore/firecontrol/internal/storage"
	"github.com/mechcore/firecontrol/internal/tohit"
	"github.com/mechcore/firecontrol/pkg/core"
)

var (
	// ErrUnknownAttacker is returned by Declare for an attacker not on the board.
	ErrUnknownAttacker = errors.New("unknown attacker")
	// ErrWrongPhase is returned by Declare for a declaration stamped with another phase.
	ErrWrongPhase = errors.New("declaration is for another phase")
	// ErrResolving is returned when Resolve is called concurrently.
	ErrResolving = errors.New("phase is already resolving")
)

// Dependencies holds what the resolver needs. Storage and Influx are optional.
type Dependencies struct {
	Game       *game.Game
	Calculator *tohit.Calculator
	Storage    storage.Backend
	Influx     influx.PointWriter
	Session    core.Session
	Logger     *slog.Logger
	Now        func() time.Time
}

// Summary is the outcome of EndPhase.
type Summary struct {
	Phase   int                 `json:"phase"`
	Results []core.AttackResult `json:"results"`
	Reports []core.Report       `json:"reports"`
}

// Resolver owns the queue of pending declarations for a game.
type Resolver struct {
	deps    Dependencies
	log     *slog.Logger
	pending *queue.Queue[core.Declaration]

	resolving sync.Mutex

	mu          sync.RWMutex
	recordedSeq int
	lastResolve time.Duration

	resolved metric.Int64Counter
	aborted  metric.Int64Counter
	damage   metric.Int64Counter
}

// New creates a resolver. It uses the global OTel meter (no-op if not
// configured).
func New(deps Dependencies) (*Resolver, error) {
	if deps.Game == nil {
		return nil, errors.New("phase resolver needs a game")
	}
	if deps.Calculator == nil {
		deps.Calculator = tohit.NewCalculator(deps.Game.Catalog(), tohit.Options{
			IndirectFire: deps.Game.Options().IndirectFire,
		})
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := &Resolver{
		deps:    deps,
		log:     deps.Logger.With("component", "phase"),
		pending: queue.New[core.Declaration](),
	}

	m := meter()
	var err error
	r.resolved, err = m.Int64Counter(
		"resolver.attacks.resolved",
		metric.WithDescription("Total attacks resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolved counter: %w", err)
	}
	r.aborted, err = m.Int64Counter(
		"resolver.attacks.aborted",
		metric.WithDescription("Total attacks aborted before damage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating aborted counter: %w", err)
	}
	r.damage, err = m.Int64Counter(
		"resolver.damage.applied",
		metric.WithDescription("Total damage points applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating damage counter: %w", err)
	}

	return r, nil
}

// Game returns the game the resolver commits to.
func (r *Resolver) Game() *game.Game { return r.deps.Game }

// Declare accepts a declaration for the current phase. A missing ID is
// assigned; the accepted declaration is returned.
func (r *Resolver) Declare(d core.Declaration) (core.Declaration, error) {
	current := r.deps.Game.Phase()
	switch {
	case d.Phase == 0:
		d.Phase = current
	case d.Phase != current:
		return core.Declaration{}, fmt.Errorf("%w: declared for %d, current is %d", ErrWrongPhase, d.Phase, current)
	}
	if _, ok := r.deps.Game.Entity(d.Attacker); !ok {
		return core.Declaration{}, fmt.Errorf("%w: %d", ErrUnknownAttacker, d.Attacker)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	r.pending.Push(d)
	r.log.Debug("attack declared", "attack", d.ID, "attacker", d.Attacker, "weapon", d.Weapon, "phase", d.Phase)
	return d, nil
}

// Pending returns the number of queued declarations.
func (r *Resolver) Pending() int {
	return r.pending.Len()
}

// Resolve takes the turn token and resolves every queued declaration in
// order. Each attack is committed before the next one is validated. On
// context cancellation the remaining declarations stay queued.
func (r *Resolver) Resolve(ctx context.Context) ([]core.AttackResult, error) {
	if !r.resolving.TryLock() {
		return nil, ErrResolving
	}
	defer r.resolving.Unlock()

	g := r.deps.Game
	tok, err := g.AcquireToken()
	if err != nil {
		return nil, err
	}
	defer tok.Release()

	start := time.Now()
	phase := g.Phase()
	var (
		results []core.AttackResult
		aborted int
		damage  int
	)

	for ctx.Err() == nil {
		d, ok := r.pending.Pop()
		if !ok {
			break
		}
		res, err := attack.New(g, r.deps.Calculator, d, r.log).Resolve(tok)
		if err != nil {
			if errors.Is(err, game.ErrStaleToken) {
				return results, err
			}
			r.log.Error("attack failed", "attack", d.ID, "error", err)
		}
		results = append(results, res)

		attrs := metric.WithAttributes(attribute.String("handler", res.Handler))
		r.resolved.Add(ctx, 1, attrs)
		if res.Aborted {
			aborted++
			r.aborted.Add(ctx, 1, attrs)
		}
		if res.Damage > 0 {
			damage += res.Damage
			r.damage.Add(ctx, int64(res.Damage), attrs)
		}
		r.recordAttack(ctx, res)
	}

	took := time.Since(start)
	r.mu.Lock()
	r.lastResolve = took
	r.mu.Unlock()

	r.recordReports()
	r.recordUnits(phase)
	if r.deps.Influx != nil {
		p := influx.PhasePoint(r.deps.Session.ID, phase, len(results), aborted, damage, took, r.deps.Now())
		if err := r.deps.Influx.WritePoint(ctx, influx.BucketCombat, p); err != nil {
			r.log.Warn("failed to write phase point", "error", err)
		}
	}

	r.log.Info("phase resolved", "phase", phase, "attacks", len(results), "aborted", aborted, "damage", damage, "duration", took)
	return results, ctx.Err()
}

// EndPhase resolves the queue and advances to the next phase.
func (r *Resolver) EndPhase(ctx context.Context) (Summary, error) {
	r.mu.RLock()
	from := r.recordedSeq
	r.mu.RUnlock()

	results, err := r.Resolve(ctx)
	if err != nil {
		return Summary{Phase: r.deps.Game.Phase(), Results: results}, err
	}
	next, err := r.deps.Game.AdvancePhase()
	if err != nil {
		return Summary{Phase: next, Results: results}, err
	}
	r.recordReports()

	return Summary{
		Phase:   next,
		Results: results,
		Reports: r.deps.Game.Log().Since(from),
	}, nil
}

// Stats reports resolver health to the monitor.
func (r *Resolver) Stats() monitor.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return monitor.Stats{
		SessionID:      r.deps.Session.ID,
		Phase:          r.deps.Game.Phase(),
		PendingAttacks: r.pending.Len(),
		LastResolve:    r.lastResolve,
	}
}

func (r *Resolver) recordAttack(ctx context.Context, res core.AttackResult) {
	if r.deps.Storage != nil {
		if err := r.deps.Storage.RecordAttack(&res); err != nil {
			r.log.Error("failed to record attack", "attack", res.DeclarationID, "error", err)
		}
	}
	if r.deps.Influx != nil {
		p := influx.AttackPoint(r.deps.Session.ID, res, r.deps.Now())
		if err := r.deps.Influx.WritePoint(ctx, influx.BucketCombat, p); err != nil {
			r.log.Warn("failed to write attack point", "attack", res.DeclarationID, "error", err)
		}
	}
}

// recordReports hands log entries not yet recorded to storage.
func (r *Resolver) recordReports() {
	r.mu.Lock()
	entries := r.deps.Game.Log().Since(r.recordedSeq)
	if len(entries) > 0 {
		r.recordedSeq = entries[len(entries)-1].Seq
	}
	r.mu.Unlock()

	if len(entries) == 0 || r.deps.Storage == nil {
		return
	}
	if err := r.deps.Storage.RecordReports(entries); err != nil {
		r.log.Error("failed to record reports", "count", len(entries), "error", err)
	}
}

func (r *Resolver) recordUnits(phase int) {
	if r.deps.Storage == nil {
		return
	}
	at := r.deps.Now()
	for _, u := range r.deps.Game.Units() {
		s := u.Snapshot(phase, at)
		if err := r.deps.Storage.RecordUnitState(&s); err != nil {
			r.log.Error("failed to record unit state", "unit", u.ID, "error", err)
		}
	}
}
