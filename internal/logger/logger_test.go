package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" info ", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "debug", Format: FormatText, Output: &buf})

	log.Debug("debug message", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "debug message") || !strings.Contains(out, "key=value") {
		t.Errorf("Expected debug message in text output, got: %s", out)
	}
	if !strings.Contains(out, "service=semnotes") {
		t.Errorf("Expected the service tag, got: %s", out)
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	log.Info("json message")

	out := buf.String()
	if !strings.Contains(out, `"msg":"json message"`) {
		t.Errorf("Expected JSON formatted output, got: %s", out)
	}
	if !strings.Contains(out, `"service":"semnotes"`) {
		t.Errorf("Expected the service tag in JSON output, got: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "warn", Format: FormatText, Output: &buf})

	log.Info("should not appear")
	if buf.Len() > 0 {
		t.Errorf("INFO message should not have been logged at warn level, got: %s", buf.String())
	}

	log.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("WARN message should have been logged")
	}
}

func TestServiceOverride(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "info", Format: FormatText, Output: &buf, Service: "worker"})

	log.Info("tagged")
	if !strings.Contains(buf.String(), "service=worker") {
		t.Errorf("Expected overridden service tag, got: %s", buf.String())
	}
}
