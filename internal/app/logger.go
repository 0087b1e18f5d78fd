package app

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger. Production (or an explicit json
// format) emits JSON without source locations; development keeps the
// human-readable handler with them.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     logLevel(cfg),
		AddSource: cfg == nil || !cfg.IsProduction(),
	}
	if cfg != nil && (cfg.IsProduction() || cfg.LogFormat == "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func logLevel(cfg *Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
