package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// SessionContext returns a ContextProvider reporting the session id and the
// phase returned by phase.
func SessionContext(sessionID string, phase func() int) ContextProvider {
	return func() []slog.Attr {
		attrs := []slog.Attr{slog.String("session", sessionID)}
		if phase != nil {
			attrs = append(attrs, slog.Int("phase", phase()))
		}
		return attrs
	}
}
