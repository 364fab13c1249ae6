package logging

import "github.com/rs/zerolog"

// DispatcherLogger lets the dispatcher log through zerolog with slog-style
// key/value pairs.
type DispatcherLogger struct {
	zl zerolog.Logger
}

func NewDispatcherLogger(zl zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{zl: zl}
}

func (l *DispatcherLogger) Debug(msg string, kv ...any) { emit(l.zl.Debug(), msg, kv) }
func (l *DispatcherLogger) Info(msg string, kv ...any)  { emit(l.zl.Info(), msg, kv) }
func (l *DispatcherLogger) Error(msg string, kv ...any) { emit(l.zl.Error(), msg, kv) }

// emit adds the pairs to e and sends it. Pairs with a non-string key and a
// trailing unpaired value are dropped.
func emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr {
			e = e.AnErr(key, err)
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
