package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetupLevels(t *testing.T) {
	cases := []struct {
		level   string
		enabled slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug}, // case-insensitive
		{"bogus", slog.LevelInfo},  // falls back to info
	}

	for _, tc := range cases {
		log := Setup(tc.level)
		if log == nil {
			t.Fatalf("Setup(%q) returned nil logger", tc.level)
		}
		if !log.Enabled(context.Background(), tc.enabled) {
			t.Errorf("Setup(%q): expected level %v to be enabled", tc.level, tc.enabled)
		}
	}
}

func TestFromContextOrDefault(t *testing.T) {
	t.Parallel()

	def := slog.Default()

	// No logger in context: fall back to the provided default.
	if got := FromContextOrDefault(context.Background(), def); got != def {
		t.Error("Expected provided default logger when context has none")
	}

	// Nil default: fall back to slog.Default().
	if got := FromContextOrDefault(context.Background(), nil); got == nil {
		t.Error("Expected slog.Default() fallback, got nil")
	}

	// Logger stored in context wins.
	stored := slog.Default().With("component", "test")
	ctx := WithLogger(context.Background(), stored)
	if got := FromContextOrDefault(ctx, def); got != stored {
		t.Error("Expected logger from context to take precedence")
	}
}
