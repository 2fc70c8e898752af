package logger

import (
	"log/slog"
	"os"
)

// New builds the process logger. Debug level is enabled via config or the
// DEBUG env var.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(log)
	return log
}
