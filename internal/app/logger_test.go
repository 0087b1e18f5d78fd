package app

import (
	"context"
	"log/slog"
	"testing"
)

func TestLogLevel(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := logLevel(&Config{LogLevel: tc.level}); got != tc.want {
			t.Errorf("logLevel(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
	if got := logLevel(nil); got != slog.LevelInfo {
		t.Errorf("logLevel(nil) = %v, want info", got)
	}
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	ctx := context.Background()

	prod := NewLogger(&Config{AppEnv: "production", LogLevel: "warn"})
	if prod.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("warn-level logger must not emit info")
	}
	if !prod.Enabled(ctx, slog.LevelWarn) {
		t.Fatalf("warn-level logger must emit warn")
	}

	dev := NewLogger(&Config{AppEnv: "development", LogLevel: "debug"})
	if !dev.Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("debug-level logger must emit debug")
	}
}
