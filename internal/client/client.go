// Package client is the player side of the link: it sends declarations
// and mirrors what the server broadcasts.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	ws "github.com/gorilla/websocket"

	"github.com/mechcore/firecontrol/internal/cache"
	"github.com/mechcore/firecontrol/internal/connection"
	"github.com/mechcore/firecontrol/internal/parser"
	"github.com/mechcore/firecontrol/internal/transport"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/mechcore/firecontrol/pkg/protocol"
)

// RemoteError is a request the server rejected.
type RemoteError struct {
	Command string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server rejected %s: %s", e.Command, e.Message)
}

// Options configures a client. The callbacks are optional and run on the
// receive goroutine.
type Options struct {
	Name   string
	Owner  int
	Codec  *transport.Codec
	Logger *slog.Logger

	OnResult  func(core.AttackResult)
	OnReports func([]core.Report)
	OnPhase   func(int)
	OnUnits   func(protocol.UnitsPayload)
}

type waiter struct {
	command string
	reply   chan transport.Message
}

// Client is one connection to a resolution server.
type Client struct {
	opts    Options
	conn    *connection.Connection
	parser  *parser.Parser
	log     *slog.Logger
	units   *cache.UnitCache
	results *cache.ResultCache
	packets cache.SafeCounter

	reqMu   sync.Mutex
	waiters []waiter

	mu      sync.RWMutex
	phase   int
	session string
	reports []core.Report

	loopDone chan struct{}
}

// Dial connects over TCP.
func Dial(ctx context.Context, address string, opts Options) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	c, err := New(conn, "tcp", opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// DialWebSocket connects to a ws:// or wss:// url.
func DialWebSocket(ctx context.Context, url string, opts Options) (*Client, error) {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c, err := New(connection.NewWebSocketStream(conn), "websocket", opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// New runs a client over an established stream.
func New(rw io.ReadWriteCloser, kind string, opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Codec == nil {
		return nil, errors.New("client needs a codec")
	}
	conn, err := connection.New(rw, connection.Options{
		Codec:  opts.Codec,
		Logger: opts.Logger,
		Kind:   kind,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:     opts,
		conn:     conn,
		parser:   parser.NewParser(opts.Logger, nil),
		log:      opts.Logger.With("component", "client"),
		units:    cache.NewUnitCache(),
		results:  cache.NewResultCache(),
		loopDone: make(chan struct{}),
	}
	go c.loop()
	return c, nil
}

func (c *Client) loop() {
	defer close(c.loopDone)
	err := c.conn.Process(context.Background(), func(msg transport.Message) error {
		c.packets.Inc()
		c.handle(msg)
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		c.log.Debug("Receive loop stopped", "error", err)
	}
}

func (c *Client) handle(msg transport.Message) {
	switch msg.Command() {
	case protocol.Units:
		u, err := c.parser.ParseUnits(msg)
		if err != nil {
			c.log.Warn("Bad units packet", "error", err)
			return
		}
		c.units.Apply(u.Phase, u.Units)
		if c.opts.OnUnits != nil {
			c.opts.OnUnits(u)
		}
	case protocol.AttackResult:
		r, err := c.parser.ParseAttackResult(msg)
		if err != nil {
			c.log.Warn("Bad attack result", "error", err)
			return
		}
		c.results.Resolve(r)
		if c.opts.OnResult != nil {
			c.opts.OnResult(r)
		}
	case protocol.Reports:
		reports, err := c.parser.ParseReports(msg)
		if err != nil {
			c.log.Warn("Bad reports packet", "error", err)
			return
		}
		c.mu.Lock()
		c.reports = append(c.reports, reports...)
		c.mu.Unlock()
		if c.opts.OnReports != nil {
			c.opts.OnReports(reports)
		}
	case protocol.Phase:
		p, err := c.parser.ParsePhase(msg)
		if err != nil {
			c.log.Warn("Bad phase packet", "error", err)
			return
		}
		c.setPhase(p)
		if c.opts.OnPhase != nil {
			c.opts.OnPhase(p)
		}
	case protocol.Error:
		e, err := c.parser.ParseError(msg)
		if err != nil {
			c.log.Warn("Bad error packet", "error", err)
			return
		}
		if !c.deliver(e.Command, msg) {
			c.log.Warn("Unsolicited error", "command", e.Command, "message", e.Message)
		}
	default:
		if !c.deliver(msg.Command(), msg) {
			c.log.Debug("Unexpected packet", "command", msg.Command())
		}
	}
}

// deliver hands msg to the oldest waiter if it is waiting for command.
func (c *Client) deliver(command string, msg transport.Message) bool {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	if len(c.waiters) == 0 || c.waiters[0].command != command {
		return false
	}
	w := c.waiters[0]
	c.waiters = c.waiters[1:]
	w.reply <- msg
	return true
}

// request sends a packet and waits for its answer. Requests are answered
// in the order they were sent.
func (c *Client) request(ctx context.Context, command string, payload any) (transport.Message, error) {
	w := waiter{command: command, reply: make(chan transport.Message, 1)}

	c.reqMu.Lock()
	if err := c.conn.SendPayload(command, payload); err != nil {
		c.reqMu.Unlock()
		return transport.Message{}, err
	}
	c.waiters = append(c.waiters, w)
	c.reqMu.Unlock()

	select {
	case <-ctx.Done():
		return transport.Message{}, ctx.Err()
	case <-c.loopDone:
		if err := c.conn.Err(); err != nil {
			return transport.Message{}, err
		}
		return transport.Message{}, connection.ErrClosed
	case msg := <-w.reply:
		if msg.Command() == protocol.Error {
			e, err := c.parser.ParseError(msg)
			if err != nil {
				return transport.Message{}, err
			}
			return transport.Message{}, &RemoteError{Command: e.Command, Message: e.Message}
		}
		return msg, nil
	}
}

// Hello introduces the client and records the session and phase.
func (c *Client) Hello(ctx context.Context) (protocol.HelloPayload, error) {
	msg, err := c.request(ctx, protocol.Hello, protocol.HelloPayload{
		Name:    c.opts.Name,
		Version: protocol.Version,
		Owner:   c.opts.Owner,
	})
	if err != nil {
		return protocol.HelloPayload{}, err
	}
	var hello protocol.HelloPayload
	if err := msg.Decode(&hello); err != nil {
		return hello, err
	}
	c.mu.Lock()
	c.session = hello.Session
	c.mu.Unlock()
	c.setPhase(hello.Phase)
	return hello, nil
}

// Declare sends a declaration and returns it as the server accepted it.
func (c *Client) Declare(ctx context.Context, d core.Declaration) (core.Declaration, error) {
	msg, err := c.request(ctx, protocol.DeclareAttack, protocol.DeclareAttackPayload{Declaration: d})
	if err != nil {
		return core.Declaration{}, err
	}
	var p protocol.DeclareAttackPayload
	if err := msg.Decode(&p); err != nil {
		return core.Declaration{}, err
	}
	c.results.Declare(p.Declaration)
	return p.Declaration, nil
}

// SetMode switches a weapon mode for the next phase.
func (c *Client) SetMode(ctx context.Context, unit core.EntityID, slot int, mode string) error {
	_, err := c.request(ctx, protocol.SetMode, protocol.SetModePayload{Unit: unit, Slot: slot, Mode: mode})
	return err
}

// EndPhase asks the server to resolve the phase and returns the new phase.
// Results, reports and units arrive as broadcasts before the reply.
func (c *Client) EndPhase(ctx context.Context) (int, error) {
	msg, err := c.request(ctx, protocol.EndPhase, nil)
	if err != nil {
		return 0, err
	}
	p, err := c.parser.ParsePhase(msg)
	if err != nil {
		return 0, err
	}
	c.setPhase(p)
	return p, nil
}

// RefreshUnits requests fresh snapshots and stores them in the cache.
func (c *Client) RefreshUnits(ctx context.Context) ([]core.UnitState, error) {
	msg, err := c.request(ctx, protocol.GetUnits, nil)
	if err != nil {
		return nil, err
	}
	u, err := c.parser.ParseUnits(msg)
	if err != nil {
		return nil, err
	}
	c.units.Apply(u.Phase, u.Units)
	return u.Units, nil
}

func (c *Client) setPhase(p int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p > c.phase {
		c.phase = p
	}
}

// Phase returns the latest phase the server announced.
func (c *Client) Phase() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Session returns the session id from the hello reply.
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Reports returns every log entry received so far.
func (c *Client) Reports() []core.Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.Report(nil), c.reports...)
}

// Units returns the mirrored unit state.
func (c *Client) Units() *cache.UnitCache { return c.units }

// Results returns declared attacks and their outcomes.
func (c *Client) Results() *cache.ResultCache { return c.results }

// Received returns the number of packets read.
func (c *Client) Received() int { return c.packets.Value() }

// Done is closed once the receive loop has stopped.
func (c *Client) Done() <-chan struct{} { return c.loopDone }

// Close drops the connection and waits for the receive loop.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.loopDone
	return err
}
