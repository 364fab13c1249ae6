package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Fanout passes each record to every member handler enabled for its level.
// A failing member does not stop the others; their errors are joined.
type Fanout []slog.Handler

// NewFanout drops nil handlers.
func NewFanout(handlers ...slog.Handler) Fanout {
	f := make(Fanout, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			f = append(f, h)
		}
	}
	return f
}

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f Fanout) each(fn func(slog.Handler) slog.Handler) Fanout {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// ContextProvider returns attributes evaluated when a record is logged.
type ContextProvider func() []slog.Attr

type contextual struct {
	slog.Handler
	provider ContextProvider
}

// WithContext wraps h so every record carries the attributes of p at the
// time it is logged.
func WithContext(h slog.Handler, p ContextProvider) slog.Handler {
	if p == nil {
		return h
	}
	return contextual{Handler: h, provider: p}
}

func (c contextual) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(c.provider()...)
	return c.Handler.Handle(ctx, r)
}

func (c contextual) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextual{Handler: c.Handler.WithAttrs(attrs), provider: c.provider}
}

func (c contextual) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	return contextual{Handler: c.Handler.WithGroup(name), provider: c.provider}
}
