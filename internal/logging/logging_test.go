package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_WritesJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSessionID(WithComponent(newLogger(&buf, "info"), "clips"), "s-1")

	logger.Debug("hidden")
	logger.Info("clip added", "index", 0)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not a single JSON line: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "clip added" {
		t.Errorf("msg = %v, want clip added", entry["msg"])
	}
	if entry["component"] != "clips" || entry["session_id"] != "s-1" {
		t.Errorf("missing attributes in %v", entry)
	}
}

func TestSanitizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}

	got := SanitizePath(filepath.Join(home, "videos", "a.mp4"))
	want := "~" + string(filepath.Separator) + filepath.Join("videos", "a.mp4")
	if got != want {
		t.Errorf("SanitizePath = %q, want %q", got, want)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Fatal("OrDiscard should return the given logger")
	}
}
