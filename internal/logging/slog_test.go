package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func setupTo(t *testing.T, level string) (*SlogManager, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, level, nil)
	return m, &buf
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{"info", false},
		{"debug", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			m, buf := setupTo(t, tt.level)
			m.Logger().Debug("heat check")
			m.Logger().Info("volley fired")

			assert.Contains(t, buf.String(), "Logging initialized")
			assert.Contains(t, buf.String(), "volley fired")
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("heat check")))
		})
	}
}

func TestSetup_ReplacesOutput(t *testing.T) {
	m, first := setupTo(t, "info")
	m.Logger().Info("phase 1")

	var second bytes.Buffer
	m.Setup(&second, "info", nil)
	m.Logger().Info("phase 2")

	assert.Contains(t, first.String(), "phase 1")
	assert.NotContains(t, first.String(), "phase 2")
	assert.Contains(t, second.String(), "phase 2")
}

func TestSetup_SinkGetsJSON(t *testing.T) {
	var file, sink bytes.Buffer
	m := NewSlogManager()
	m.AddSink(&sink)
	m.AddSink(nil)
	m.Setup(&file, "info", nil)

	sink.Reset()
	m.Logger().Info("attack resolved", "attack", "atk-1", "damage", 6)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(sink.Bytes(), &entry))
	assert.Equal(t, "attack resolved", entry["msg"])
	assert.Equal(t, "atk-1", entry["attack"])
	assert.Equal(t, float64(6), entry["damage"])
	assert.Contains(t, file.String(), "attack resolved")
}

func TestSetup_ContextProvider(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.SetContextProvider(SessionContext("sess-9", func() int { return 2 }))
	m.Setup(&buf, "info", nil)

	m.Logger().Info("phase resolved")
	assert.Contains(t, buf.String(), "session=sess-9")
	assert.Contains(t, buf.String(), "phase=2")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)

	m.Logger().Info("bridged")
	assert.Contains(t, buf.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"Info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"debug-4": slog.LevelDebug - 4,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestFanout(t *testing.T) {
	var info, debug bytes.Buffer
	f := NewFanout(
		nil,
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	require.Len(t, f, 2)
	assert.True(t, f.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(f).With("unit", 4).WithGroup("shot")
	logger.Debug("cluster roll", "roll", 9)
	logger.Info("hit", "location", "CT")

	assert.NotContains(t, info.String(), "cluster roll")
	assert.Contains(t, info.String(), "unit=4")
	assert.Contains(t, info.String(), "shot.location=CT")
	assert.Contains(t, debug.String(), "shot.roll=9")
}

func TestFanout_Empty(t *testing.T) {
	f := NewFanout()
	assert.False(t, f.Enabled(context.Background(), slog.LevelError))
	assert.Equal(t, f, f.WithGroup(""))
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestFanout_HandleErrorReachesOthers(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(failingHandler{}, slog.NewTextHandler(&buf, nil))

	err := f.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0))
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), "still delivered")
}
