// Package dispatcher routes incoming packets to the handler registered for
// their command. Handlers run on the caller's goroutine, so a connection's
// replies leave in the order its requests arrived.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoPayload      = errors.New("no payload")
	// ErrHandlerPanic wraps a panic recovered by a Recovered handler.
	ErrHandlerPanic = errors.New("handler panicked")
)

// Payload decodes a packet body into a typed value.
type Payload interface {
	Decode(v any) error
}

// Event is one incoming packet. Source identifies the connection.
type Event struct {
	Command   string
	Source    uint64
	Payload   Payload
	Timestamp time.Time
}

func (e Event) Decode(v any) error {
	if e.Payload == nil {
		return fmt.Errorf("%s: %w", e.Command, ErrNoPayload)
	}
	return e.Payload.Decode(v)
}

type HandlerFunc func(Event) (any, error)

type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option wraps a handler at registration.
type Option func(d *Dispatcher, command string, h HandlerFunc) HandlerFunc

// Logged logs each event at debug level and failures at error level.
func Logged() Option {
	return func(d *Dispatcher, command string, h HandlerFunc) HandlerFunc {
		return func(e Event) (any, error) {
			start := time.Now()
			d.log.Debug("handling event", "command", command, "source", e.Source)
			out, err := h(e)
			if err != nil {
				d.log.Error("event failed", "command", command, "source", e.Source, "duration", time.Since(start), "error", err)
				return out, err
			}
			d.log.Debug("event complete", "command", command, "source", e.Source, "duration", time.Since(start))
			return out, nil
		}
	}
}

// Recovered turns a panic in the handler into an ErrHandlerPanic error.
func Recovered() Option {
	return func(_ *Dispatcher, command string, h HandlerFunc) HandlerFunc {
		return func(e Event) (out any, err error) {
			defer func() {
				if r := recover(); r != nil {
					out, err = nil, fmt.Errorf("%w: %s: %v", ErrHandlerPanic, command, r)
				}
			}()
			return h(e)
		}
	}
}

type route struct {
	handler HandlerFunc
	attrs   metric.MeasurementOption
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	log Logger

	mu     sync.RWMutex
	routes map[string]route

	handled metric.Int64Counter
	failed  metric.Int64Counter
	latency metric.Float64Histogram
}

// New builds a dispatcher reporting to the global OTel meter provider.
func New(log Logger) (*Dispatcher, error) {
	d := &Dispatcher{log: log, routes: make(map[string]route)}
	m := meter()

	var err error
	if d.handled, err = m.Int64Counter("dispatcher.events.handled",
		metric.WithDescription("Events routed to a handler")); err != nil {
		return nil, fmt.Errorf("dispatcher handled counter: %w", err)
	}
	if d.failed, err = m.Int64Counter("dispatcher.events.failed",
		metric.WithDescription("Events whose handler returned an error")); err != nil {
		return nil, fmt.Errorf("dispatcher failed counter: %w", err)
	}
	if d.latency, err = m.Float64Histogram("dispatcher.event.duration",
		metric.WithDescription("Handler run time"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("dispatcher latency histogram: %w", err)
	}
	return d, nil
}

// Register binds h to command. Options apply in order, so the last one is
// the outermost wrapper. Registering a command again replaces its handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	for _, opt := range opts {
		h = opt(d, command, h)
	}
	d.mu.Lock()
	d.routes[command] = route{
		handler: h,
		attrs:   metric.WithAttributes(attribute.String("command", command)),
	}
	d.mu.Unlock()
}

// Dispatch runs the handler for e.Command and returns its result.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	ctx := context.Background()
	out, err := r.handler(e)
	d.handled.Add(ctx, 1, r.attrs)
	d.latency.Record(ctx, float64(time.Since(e.Timestamp).Microseconds())/1000, r.attrs)
	if err != nil {
		d.failed.Add(ctx, 1, r.attrs)
	}
	return out, err
}

func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Commands returns the registered commands, sorted.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for c := range d.routes {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
