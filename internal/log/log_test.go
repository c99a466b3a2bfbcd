package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"Error", slog.LevelError},
		{"  info  ", slog.LevelInfo},
		{"\twarn\n", slog.LevelWarn},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	for _, input := range []string{"", "trace", "fatal", "INFO!", "123", "info error"} {
		if _, err := ParseLevel(input); err == nil {
			t.Errorf("ParseLevel(%q) should return error", input)
		}
	}
}

func TestParseLevel_ErrorMessage(t *testing.T) {
	_, err := ParseLevel("bogus")
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "bogus") {
		t.Errorf("error should contain the invalid input, got: %s", msg)
	}
	if !strings.Contains(msg, "debug|info|warn|error") {
		t.Errorf("error should list valid levels, got: %s", msg)
	}
}

func TestNew_LoggerImplementsInterface(t *testing.T) {
	l, err := New(Options{App: "test", Writer: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	l.Debug(ctx, "debug msg")
	l.Info(ctx, "info msg")
	l.Warn(ctx, "warn msg")
	l.Error(ctx, fmt.Errorf("test"), "error msg")
	l.Log(ctx, slog.LevelWarn, "log msg")

	if child := l.With("key", "value"); child == nil {
		t.Fatal("With returned nil")
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
