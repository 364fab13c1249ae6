// Package connection runs one peer link: a read loop feeding an incoming
// channel and a send queue flushed in order under a lock.
package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mechcore/firecontrol/internal/channel"
	"github.com/mechcore/firecontrol/internal/queue"
	"github.com/mechcore/firecontrol/internal/transport"
	"github.com/mechcore/firecontrol/pkg/protocol"
)

// DefaultInBuffer is the incoming channel size.
const DefaultInBuffer = 256

// ErrClosed is returned when sending on a closed connection.
var ErrClosed = errors.New("connection closed")

var nextID atomic.Uint64

// DisconnectFunc is called exactly once when the connection goes away.
// err is nil for a local Close.
type DisconnectFunc func(c *Connection, err error)

// Options configures a connection.
type Options struct {
	Codec        *transport.Codec
	InBuffer     int
	Logger       *slog.Logger
	OnDisconnect DisconnectFunc
	// Kind labels metrics, e.g. "tcp" or "websocket".
	Kind string
}

// Connection is one framed packet link.
type Connection struct {
	id    uint64
	rw    io.ReadWriteCloser
	codec *transport.Codec
	log   *slog.Logger

	incoming channel.Channel[transport.Message]
	outgoing *queue.Queue[protocol.Packet]
	sendMu   sync.Mutex
	flushSig chan struct{}

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
	onClose   DisconnectFunc

	attrs    metric.MeasurementOption
	received metric.Int64Counter
	sent     metric.Int64Counter
	dropped  metric.Int64Counter
}

// New wraps rw and starts the read and flush loops.
func New(rw io.ReadWriteCloser, opts Options) (*Connection, error) {
	if opts.Codec == nil {
		return nil, errors.New("connection needs a codec")
	}
	if opts.InBuffer <= 0 {
		opts.InBuffer = DefaultInBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Kind == "" {
		opts.Kind = "stream"
	}

	c := &Connection{
		id:       nextID.Add(1),
		rw:       rw,
		codec:    opts.Codec,
		incoming: channel.New[transport.Message](opts.InBuffer),
		outgoing: queue.New[protocol.Packet](),
		flushSig: make(chan struct{}, 1),
		done:     make(chan struct{}),
		onClose:  opts.OnDisconnect,
		attrs:    metric.WithAttributes(attribute.String("kind", opts.Kind)),
	}
	c.log = opts.Logger.With("conn", c.id, "kind", opts.Kind)

	m := meter()
	var err error
	c.received, err = m.Int64Counter(
		"connection.packets.received",
		metric.WithDescription("Total packets read"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating received counter: %w", err)
	}
	c.sent, err = m.Int64Counter(
		"connection.packets.sent",
		metric.WithDescription("Total packets written"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}
	c.dropped, err = m.Int64Counter(
		"connection.packets.dropped",
		metric.WithDescription("Queued packets discarded on close"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	go c.readLoop()
	go c.flushLoop()
	return c, nil
}

// ID identifies the connection within the process.
func (c *Connection) ID() uint64 { return c.id }

// Codec returns the codec used for this connection.
func (c *Connection) Codec() *transport.Codec { return c.codec }

// Done is closed when the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Err returns the error that closed the connection, if any.
func (c *Connection) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Incoming returns the channel decoded packets are delivered on.
func (c *Connection) Incoming() channel.Receiver[transport.Message] {
	return c.incoming
}

func (c *Connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// readLoop blocks on the transport. Closing the transport unblocks it.
func (c *Connection) readLoop() {
	for {
		msg, err := c.codec.Read(c.rw)
		if err != nil {
			if !c.closed() {
				c.log.Debug("read failed", "error", err)
			}
			c.shutdown(err)
			return
		}
		c.received.Add(context.Background(), 1, c.attrs)
		if !c.incoming.Send(msg) {
			return
		}
	}
}

func (c *Connection) flushLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.flushSig:
			if err := c.Flush(); err != nil && !errors.Is(err, ErrClosed) {
				c.log.Debug("flush failed", "error", err)
			}
		}
	}
}

// Process applies incoming packets with fn, one at a time, until ctx is
// done, the connection closes, or fn returns an error. Packets read before
// the connection closed are still applied.
func (c *Connection) Process(ctx context.Context, fn func(transport.Message) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.incoming.Done():
			return c.drain(fn)
		case msg := <-c.incoming.Receive():
			if err := fn(msg); err != nil {
				return err
			}
		}
	}
}

func (c *Connection) drain(fn func(transport.Message) error) error {
	for {
		select {
		case msg := <-c.incoming.Receive():
			if err := fn(msg); err != nil {
				return err
			}
		default:
			return c.Err()
		}
	}
}

// Send queues pkt and wakes the flusher.
func (c *Connection) Send(pkt protocol.Packet) error {
	if c.closed() {
		return ErrClosed
	}
	c.outgoing.Push(pkt)
	select {
	case c.flushSig <- struct{}{}:
	default:
	}
	return nil
}

// SendPayload encodes payload and queues it under command.
func (c *Connection) SendPayload(command string, payload any) error {
	pkt, err := c.codec.Packet(command, payload)
	if err != nil {
		return err
	}
	return c.Send(pkt)
}

// Pending returns the number of queued outgoing packets.
func (c *Connection) Pending() int {
	return c.outgoing.Len()
}

// Flush writes every queued packet in enqueue order. A write error closes
// the connection.
func (c *Connection) Flush() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	for {
		if c.closed() {
			return ErrClosed
		}
		pkt, ok := c.outgoing.Pop()
		if !ok {
			return nil
		}
		if err := c.codec.Write(c.rw, pkt); err != nil {
			if errors.Is(err, transport.ErrFrameTooLarge) {
				c.log.Error("dropping oversized packet", "command", pkt.Command, "error", err)
				continue
			}
			c.shutdown(err)
			return err
		}
		c.sent.Add(context.Background(), 1, c.attrs)
	}
}

// Close discards the send queue and closes the transport. It is safe to
// call more than once.
func (c *Connection) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Connection) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()

		close(c.done)
		if n := len(c.outgoing.Drain()); n > 0 {
			c.dropped.Add(context.Background(), int64(n), c.attrs)
		}
		if err := c.rw.Close(); err != nil {
			c.log.Debug("transport close", "error", err)
		}
		c.incoming.Close()

		c.log.Debug("connection closed", "cause", cause)
		if c.onClose != nil {
			c.onClose(c, cause)
		}
	})
}
