// Package websocket streams a session's records to a remote results server
// as JSON envelopes. Session start and end wait for an ack; everything in
// between is queued and written without one.
package websocket

import (
	"log/slog"
	"sync/atomic"

	"github.com/mechcore/firecontrol/pkg/core"
)

// Config names the ingest endpoint.
type Config struct {
	URL    string
	Secret string
}

// Backend is a storage backend with no local copy, so it is not Uploadable.
type Backend struct {
	cfg    Config
	stream *stream
	queued atomic.Int64
}

func New(cfg Config, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{cfg: cfg, stream: newStream(log.With("backend", "websocket"))}
}

// Init dials the server.
func (b *Backend) Init() error { return b.stream.open(b.cfg.URL, b.cfg.Secret) }

// Close sends a close frame and stops redialing.
func (b *Backend) Close() error { return b.stream.close() }

// StartSession announces s and waits for the ack. The announcement is
// resent on every reconnect until EndSession.
func (b *Backend) StartSession(s *core.Session) error {
	frame, err := encode(TypeStartSession, StartSessionPayload{Session: s})
	if err != nil {
		return err
	}
	b.stream.setStart(frame)
	return b.stream.request(frame, TypeStartSession, ackTimeout)
}

// EndSession waits for the server to ack the end of the session.
func (b *Backend) EndSession() error {
	defer b.stream.setStart(nil)
	frame, err := encode(TypeEndSession, nil)
	if err != nil {
		return err
	}
	return b.stream.request(frame, TypeEndSession, ackTimeout)
}

func (b *Backend) RecordAttack(r *core.AttackResult) error {
	return b.post(TypeAttack, r)
}

// RecordReports skips empty batches.
func (b *Backend) RecordReports(reports []core.Report) error {
	if len(reports) == 0 {
		return nil
	}
	return b.post(TypeReports, ReportsPayload{Reports: reports})
}

func (b *Backend) RecordUnitState(s *core.UnitState) error {
	return b.post(TypeUnitState, s)
}

// Sent counts the records queued without an ack.
func (b *Backend) Sent() int64 { return b.queued.Load() }

func (b *Backend) post(kind string, payload any) error {
	frame, err := encode(kind, payload)
	if err != nil {
		return err
	}
	b.stream.send(frame)
	b.queued.Add(1)
	return nil
}
