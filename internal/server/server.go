// Package server accepts client links over TCP and WebSocket and routes
// their packets through the dispatcher.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/metric"

	"github.com/mechcore/firecontrol/internal/connection"
	"github.com/mechcore/firecontrol/internal/dispatcher"
	"github.com/mechcore/firecontrol/internal/handlers"
	"github.com/mechcore/firecontrol/internal/transport"
	"github.com/mechcore/firecontrol/pkg/protocol"
)

// DefaultMaxConnections caps concurrent peers.
const DefaultMaxConnections = 128

// ErrServerFull is returned by Attach at capacity.
var ErrServerFull = errors.New("server full")

// Config holds listener settings. An empty address disables that listener.
type Config struct {
	Address        string
	WSAddress      string
	WSPath         string
	MaxConnections int
	InBuffer       int
	IdleTimeout    time.Duration
}

// Dependencies holds what the server needs.
type Dependencies struct {
	Codec      *transport.Codec
	Dispatcher *dispatcher.Dispatcher
	Logger     *slog.Logger
	// OnDisconnect is called with the id of every peer that goes away.
	OnDisconnect func(id uint64)
}

// Server owns the set of live connections.
type Server struct {
	cfg  Config
	deps Dependencies
	log  *slog.Logger

	upgrader ws.Upgrader

	mu        sync.RWMutex
	conns     map[uint64]*connection.Connection
	listeners []net.Listener
	httpSrv   *http.Server
	closed    bool
	wg        sync.WaitGroup

	active metric.Int64UpDownCounter
	rejected metric.Int64Counter
}

// New creates a server. Nothing listens until ListenAndServe or Serve.
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Codec == nil || deps.Dispatcher == nil {
		return nil, errors.New("server needs a codec and a dispatcher")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}
	if cfg.WSPath == "" {
		cfg.WSPath = "/ws"
	}

	s := &Server{
		cfg:   cfg,
		deps:  deps,
		log:   deps.Logger.With("component", "server"),
		conns: make(map[uint64]*connection.Connection),
	}
	s.upgrader = ws.Upgrader{CheckOrigin: isValidOrigin}

	m := meter()
	var err error
	s.active, err = m.Int64UpDownCounter(
		"server.connections.active",
		metric.WithDescription("Currently connected peers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active gauge: %w", err)
	}
	s.rejected, err = m.Int64Counter(
		"server.packets.rejected",
		metric.WithDescription("Packets answered with an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}
	return s, nil
}

// isValidOrigin accepts non-browser clients, same-origin and localhost.
func isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || strings.HasPrefix(host, "127.")
}

// ListenAndServe starts the configured listeners and blocks until ctx is
// done, then closes everything.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 2)

	if s.cfg.Address != "" {
		l, err := net.Listen("tcp", s.cfg.Address)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.Address, err)
		}
		s.log.Info("Listening", "address", l.Addr().String(), "transport", "tcp")
		go func() { errc <- s.Serve(l) }()
	}

	if s.cfg.WSAddress != "" {
		l, err := net.Listen("tcp", s.cfg.WSAddress)
		if err != nil {
			s.Close()
			return fmt.Errorf("listen %s: %w", s.cfg.WSAddress, err)
		}
		srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
		s.mu.Lock()
		s.httpSrv = srv
		s.mu.Unlock()
		s.log.Info("Listening", "address", l.Addr().String(), "transport", "websocket", "path", s.cfg.WSPath)
		go func() { errc <- srv.Serve(l) }()
	}

	select {
	case <-ctx.Done():
		s.Close()
		return nil
	case err := <-errc:
		s.Close()
		if errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Serve accepts TCP peers on l until l is closed.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return net.ErrClosed
	}
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		var rw io.ReadWriteCloser = conn
		if s.cfg.IdleTimeout > 0 {
			rw = &idleConn{Conn: conn, timeout: s.cfg.IdleTimeout}
		}
		if _, err := s.Attach(rw, "tcp"); err != nil {
			s.log.Warn("Rejected peer", "remote", conn.RemoteAddr().String(), "error", err)
			conn.Close()
		}
	}
}

// Handler serves the WebSocket endpoint on the configured path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WSPath, s.HandleWebSocket)
	return mux
}

// HandleWebSocket upgrades the request and attaches the socket.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.Connections() >= s.cfg.MaxConnections {
		http.Error(w, "Server full", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if _, err := s.Attach(connection.NewWebSocketStream(conn), "websocket"); err != nil {
		s.log.Warn("Rejected peer", "remote", r.RemoteAddr, "error", err)
		conn.Close()
	}
}

// Attach starts serving a peer on rw.
func (s *Server) Attach(rw io.ReadWriteCloser, kind string) (*connection.Connection, error) {
	s.mu.RLock()
	full := len(s.conns) >= s.cfg.MaxConnections
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, net.ErrClosed
	}
	if full {
		return nil, ErrServerFull
	}

	c, err := connection.New(rw, connection.Options{
		Codec:        s.deps.Codec,
		InBuffer:     s.cfg.InBuffer,
		Logger:       s.deps.Logger,
		OnDisconnect: s.forget,
		Kind:         kind,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.Close()
		return nil, net.ErrClosed
	}
	s.conns[c.ID()] = c
	s.wg.Add(1)
	s.mu.Unlock()
	s.active.Add(context.Background(), 1)
	s.log.Info("Peer connected", "conn", c.ID(), "kind", kind)

	go func() {
		defer s.wg.Done()
		err := c.Process(context.Background(), func(msg transport.Message) error {
			s.handle(c, msg)
			return nil
		})
		if err != nil && !errors.Is(err, io.EOF) {
			s.log.Debug("Peer stopped", "conn", c.ID(), "error", err)
		}
	}()
	return c, nil
}

func (s *Server) forget(c *connection.Connection, err error) {
	s.mu.Lock()
	_, ok := s.conns[c.ID()]
	delete(s.conns, c.ID())
	s.mu.Unlock()
	if !ok {
		return
	}
	s.active.Add(context.Background(), -1)
	s.log.Info("Peer disconnected", "conn", c.ID(), "cause", err)
	if s.deps.OnDisconnect != nil {
		s.deps.OnDisconnect(c.ID())
	}
}

// handle dispatches one packet and answers the peer with the handler's
// reply or an error packet.
func (s *Server) handle(c *connection.Connection, msg transport.Message) {
	out, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{
		Command: msg.Command(),
		Source:  c.ID(),
		Payload: msg,
	})
	if err != nil {
		s.rejected.Add(context.Background(), 1)
		s.log.Debug("Packet rejected", "conn", c.ID(), "command", msg.Command(), "error", err)
		if err := c.SendPayload(protocol.Error, protocol.ErrorPayload{
			Command: msg.Command(),
			Message: err.Error(),
		}); err != nil && !errors.Is(err, connection.ErrClosed) {
			s.log.Error("Failed to send error", "conn", c.ID(), "error", err)
		}
		return
	}
	reply, ok := out.(handlers.Reply)
	if !ok {
		return
	}
	if err := c.SendPayload(reply.Command, reply.Payload); err != nil && !errors.Is(err, connection.ErrClosed) {
		s.log.Error("Failed to send reply", "conn", c.ID(), "command", reply.Command, "error", err)
	}
}

// Broadcast encodes payload once and queues it on every connection.
func (s *Server) Broadcast(command string, payload any) {
	pkt, err := s.deps.Codec.Packet(command, payload)
	if err != nil {
		s.log.Error("Failed to encode broadcast", "command", command, "error", err)
		return
	}
	for _, c := range s.snapshot() {
		if err := c.Send(pkt); err != nil && !errors.Is(err, connection.ErrClosed) {
			s.log.Error("Failed to queue broadcast", "conn", c.ID(), "command", command, "error", err)
		}
	}
}

func (s *Server) snapshot() []*connection.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*connection.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// Connections returns the number of live peers.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// PendingWrites sums the queued outgoing packets over all peers.
func (s *Server) PendingWrites() int {
	n := 0
	for _, c := range s.snapshot() {
		n += c.Pending()
	}
	return n
}

// Close stops the listeners, closes every connection and waits for the
// per-peer loops to exit. It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listeners := s.listeners
	srv := s.httpSrv
	s.mu.Unlock()

	for _, l := range listeners {
		l.Close()
	}
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = srv.Shutdown(ctx)
		cancel()
	}
	for _, c := range s.snapshot() {
		c.Close()
	}
	s.wg.Wait()
	s.log.Info("Server stopped")
	return nil
}

// idleConn pushes the read deadline out on every read.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}
