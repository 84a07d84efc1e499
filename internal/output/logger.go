/*
PURPOSE:
  Provides a structured logger for onetrace.
  Wraps slog for consistent output.

REQUIREMENTS:
  User-specified:
  - Warnings for missing collectors must reach the user.
  - The profiled application owns stdout; never write there.

  Implementation-discovered:
  - Needs to support Debug/Info/Warn/Error levels.
  - Level comes from config (log_level / ONETRACE_LOG_LEVEL).

ARCHITECTURE INTEGRATION:
  - Used everywhere.

ERROR HANDLING:
  - Unknown level strings fall back to info.

IMPLEMENTATION RULES:
  - Use `log/slog` (Go 1.21+).
  - Text handler on stderr.

USAGE:
  output.Logger.Warn("message", "key", "value")

RELATED FILES:
  - All.
*/

package output

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

func init() {
	Logger = NewLogger(os.Stderr, "info")
}

// SetLogger allows overriding the default logger (e.g. for testing or config changes)
func SetLogger(l *slog.Logger) {
	Logger = l
}

// NewLogger builds a text logger writing to w at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
