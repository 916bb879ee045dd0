package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger: JSON handler when the
// config asks for structured shipping, text handler otherwise.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
