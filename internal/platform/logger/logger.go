package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog. Level defaults to info and
// can be lowered to debug via LOG_LEVEL.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
