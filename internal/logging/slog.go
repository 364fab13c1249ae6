package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName is the logger name reported through the OTel bridge.
const InstrumentationName = "firecontrol"

// SlogManager builds the process logger. The console/file output is text;
// extra sinks get JSON; records also go to the OTel provider when one is set.
type SlogManager struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
	sinks    []io.Writer
	context  ContextProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case, with offsets such as
// "debug-4". Anything else is info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key != slog.TimeKey {
				return a
			}
			if t, ok := a.Value.Any().(time.Time); ok {
				a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
			}
			return a
		},
	}
}

// AddSink registers an extra JSON output, such as a GELF writer. Sinks take
// effect on the next Setup.
func (m *SlogManager) AddSink(w io.Writer) {
	if w != nil {
		m.sinks = append(m.sinks, w)
	}
}

// SetContextProvider registers attributes added to every record. Takes
// effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.context = p
}

// Setup replaces the logger. out defaults to stdout; a nil provider
// disables the OTel bridge.
func (m *SlogManager) Setup(out io.Writer, level string, provider *sdklog.LoggerProvider) {
	if out == nil {
		out = os.Stdout
	}
	opts := handlerOptions(parseLevel(level))
	m.provider = provider

	members := []slog.Handler{slog.NewTextHandler(out, opts)}
	for _, w := range m.sinks {
		members = append(members, slog.NewJSONHandler(w, opts))
	}
	if provider != nil {
		members = append(members, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider)))
	}

	m.logger = slog.New(WithContext(NewFanout(members...), m.context))
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records to the exporter.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}
