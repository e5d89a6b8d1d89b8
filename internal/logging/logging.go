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

// TickContext returns a provider that stamps records with the current tick
// and field count.
func TickContext(tick func() uint64, fields func() int) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.Uint64("tick", tick()),
			slog.Int("fields", fields()),
		}
	}
}
