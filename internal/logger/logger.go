package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the process-wide slog default logger. Diagnostics go to
// stderr so command output on stdout stays scriptable.
func Setup(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// For returns a component-scoped logger off the default.
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
