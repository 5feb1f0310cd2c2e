// ABOUTME: Tests for logger setup
// ABOUTME: Verifies level parsing, formats and the debug log file

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"verbose", slog.LevelWarn},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")
	log.Info("Session refreshed", "user", "alice")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "Session refreshed" {
		t.Errorf("Expected msg 'Session refreshed', got %v", entry["msg"])
	}
	if entry["user"] != "alice" {
		t.Errorf("Expected user alice, got %v", entry["user"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "text")
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info to be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Expected warn message in output, got %q", out)
	}
}

func TestInitDebugLog_WritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := filepath.Join(t.TempDir(), "nested")
	closeLog, err := InitDebugLog(dir, "debug")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	slog.Debug("Navigation redirected", "to", "/login")
	if err := closeLog(); err != nil {
		t.Fatalf("Expected clean close, got %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, DebugLogName))
	if err != nil {
		t.Fatalf("Expected debug log to exist: %v", err)
	}
	if !strings.Contains(string(data), "Navigation redirected") {
		t.Errorf("Expected log line in file, got %q", string(data))
	}
}

func TestInitDebugLog_EmptyDirDiscards(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	closeLog, err := InitDebugLog("", "debug")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := closeLog(); err != nil {
		t.Errorf("Expected no-op close, got %v", err)
	}
}
