package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLevel converts a config log level to a zerolog level.
func ZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the logger used by the database and InfluxDB managers.
// Every writer gets the uncolored console format.
func NewZerolog(level string, component string, writers ...io.Writer) zerolog.Logger {
	outs := make([]io.Writer, 0, len(writers))
	for _, w := range writers {
		if w == nil {
			continue
		}
		outs = append(outs, zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	if len(outs) == 0 {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.MultiLevelWriter(outs...)).
		Level(ZerologLevel(level)).
		With().Timestamp().Str("component", component).Logger()
}
