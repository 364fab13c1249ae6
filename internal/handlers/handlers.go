// Package handlers binds protocol commands to the phase resolver.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mechcore/firecontrol/internal/dispatcher"
	"github.com/mechcore/firecontrol/internal/parser"
	"github.com/mechcore/firecontrol/internal/phase"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/mechcore/firecontrol/pkg/protocol"
)

// ErrNotOwner is returned when a peer acts on a unit it does not control.
var ErrNotOwner = errors.New("unit belongs to another player")

// Reply is a packet to send back to the peer that raised the event.
type Reply struct {
	Command string
	Payload any
}

// Broadcaster sends a packet to every connected peer.
type Broadcaster interface {
	Broadcast(command string, payload any)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Resolver    *phase.Resolver
	Parser      *parser.Parser
	Broadcaster Broadcaster
	ServerName  string
	SessionID   string
	Logger      *slog.Logger
	Now         func() time.Time
	// PhaseTimeout bounds one end_phase resolution. Zero means no limit.
	PhaseTimeout time.Duration
}

// Service provides handler methods for processing client packets
type Service struct {
	deps Dependencies
	log  *slog.Logger

	mu     sync.RWMutex
	owners map[uint64]int
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger, deps.Resolver.Game().Catalog())
	}
	return &Service{
		deps:   deps,
		log:    deps.Logger.With("component", "handlers"),
		owners: make(map[uint64]int),
	}
}

// Register binds every client command on d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(protocol.Hello, s.handleHello, dispatcher.Recovered(), dispatcher.Logged())
	d.Register(protocol.DeclareAttack, s.handleDeclare, dispatcher.Recovered())
	d.Register(protocol.SetMode, s.handleSetMode, dispatcher.Recovered(), dispatcher.Logged())
	d.Register(protocol.EndPhase, s.handleEndPhase, dispatcher.Recovered(), dispatcher.Logged())
	d.Register(protocol.GetUnits, s.handleGetUnits, dispatcher.Recovered())
}

// Forget drops what is known about a peer, typically on disconnect.
func (s *Service) Forget(source uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.owners, source)
}

// Owner returns the player a peer announced in its hello. Zero means the
// peer may act for every side.
func (s *Service) Owner(source uint64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owners[source]
}

func (s *Service) handleHello(e dispatcher.Event) (any, error) {
	hello, err := s.deps.Parser.ParseHello(e)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.owners[e.Source] = hello.Owner
	s.mu.Unlock()

	s.log.Info("Peer joined", "peer", e.Source, "name", hello.Name, "owner", hello.Owner)
	return Reply{Command: protocol.Hello, Payload: protocol.HelloPayload{
		Name:    s.deps.ServerName,
		Version: protocol.Version,
		Session: s.deps.SessionID,
		Phase:   s.deps.Resolver.Game().Phase(),
	}}, nil
}

func (s *Service) handleDeclare(e dispatcher.Event) (any, error) {
	decl, err := s.deps.Parser.ParseDeclaration(e)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(e.Source, decl.Attacker); err != nil {
		return nil, err
	}
	accepted, err := s.deps.Resolver.Declare(decl)
	if err != nil {
		return nil, err
	}
	return Reply{Command: protocol.DeclareAttack, Payload: protocol.DeclareAttackPayload{Declaration: accepted}}, nil
}

func (s *Service) handleSetMode(e dispatcher.Event) (any, error) {
	m, err := s.deps.Parser.ParseSetMode(e)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(e.Source, m.Unit); err != nil {
		return nil, err
	}
	if err := s.deps.Resolver.Game().SetMode(m.Unit, m.Slot, m.Mode); err != nil {
		return nil, err
	}
	return Reply{Command: protocol.SetMode, Payload: m}, nil
}

// handleEndPhase resolves the queue, then broadcasts every result, the new
// log entries, the new phase and fresh unit snapshots in that order.
func (s *Service) handleEndPhase(e dispatcher.Event) (any, error) {
	ctx := context.Background()
	if s.deps.PhaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.PhaseTimeout)
		defer cancel()
	}

	summary, err := s.deps.Resolver.EndPhase(ctx)
	for _, res := range summary.Results {
		s.broadcast(protocol.AttackResult, protocol.AttackResultPayload{Result: res})
	}
	if err != nil {
		return nil, fmt.Errorf("end phase: %w", err)
	}
	if len(summary.Reports) > 0 {
		s.broadcast(protocol.Reports, protocol.ReportsPayload{Reports: summary.Reports})
	}
	s.broadcast(protocol.Phase, protocol.PhasePayload{Phase: summary.Phase})
	s.broadcast(protocol.Units, s.units())

	s.log.Info("Phase ended",
		"peer", e.Source,
		"phase", summary.Phase,
		"attacks", len(summary.Results),
		"reports", len(summary.Reports))
	return Reply{Command: protocol.EndPhase, Payload: protocol.PhasePayload{Phase: summary.Phase}}, nil
}

func (s *Service) handleGetUnits(dispatcher.Event) (any, error) {
	return Reply{Command: protocol.GetUnits, Payload: s.units()}, nil
}

func (s *Service) units() protocol.UnitsPayload {
	g := s.deps.Resolver.Game()
	current := g.Phase()
	at := s.deps.Now()
	units := g.Units()
	out := protocol.UnitsPayload{Phase: current, Units: make([]core.UnitState, 0, len(units))}
	for _, u := range units {
		out.Units = append(out.Units, u.Snapshot(current, at))
	}
	return out
}

func (s *Service) checkOwner(source uint64, id core.EntityID) error {
	owner := s.Owner(source)
	if owner == 0 {
		return nil
	}
	u, ok := s.deps.Resolver.Game().Entity(id)
	if !ok {
		// the resolver reports unknown units
		return nil
	}
	if u.Owner != owner {
		return fmt.Errorf("%w: unit %d", ErrNotOwner, id)
	}
	return nil
}

func (s *Service) broadcast(command string, payload any) {
	if s.deps.Broadcaster != nil {
		s.deps.Broadcaster.Broadcast(command, payload)
	}
}
