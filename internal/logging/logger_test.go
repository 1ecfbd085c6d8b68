package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"warn", "warn", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"padded debug", " debug ", slog.LevelDebug},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtTrace bool
		logAtDebug bool
		logAtInfo  bool
	}{
		{"warn filters info", "warn", false, false, false},
		{"info filters debug", "info", false, false, true},
		{"debug filters trace", "debug", false, true, true},
		{"trace passes all", "trace", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Log(t.Context(), LevelTrace, "trace message")
			logger.Debug("debug message")
			logger.Info("info message")

			out := buf.String()
			if got := strings.Contains(out, "trace message"); got != tt.logAtTrace {
				t.Errorf("trace visible = %v, want %v (buf: %q)", got, tt.logAtTrace, out)
			}
			if got := strings.Contains(out, "debug message"); got != tt.logAtDebug {
				t.Errorf("debug visible = %v, want %v (buf: %q)", got, tt.logAtDebug, out)
			}
			if got := strings.Contains(out, "info message"); got != tt.logAtInfo {
				t.Errorf("info visible = %v, want %v (buf: %q)", got, tt.logAtInfo, out)
			}
		})
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(t.Context(), LevelTrace, "day", "day", 3)

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("expected level=TRACE in %q", buf.String())
	}
}

func TestLevelTrace(t *testing.T) {
	if LevelTrace >= slog.LevelDebug {
		t.Errorf("LevelTrace (%d) should be less than LevelDebug (%d)", LevelTrace, slog.LevelDebug)
	}
}

func TestNewTraceLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	tl := NewTraceLogger(dir, "info")
	if tl != nil {
		t.Error("expected nil TraceLogger at info level")
	}

	tl.Log("day", map[string]any{"day": 1})

	if _, err := os.Stat(filepath.Join(dir, TraceFile)); err == nil {
		t.Errorf("%s should not exist at info level", TraceFile)
	}
}

func TestTraceLogger_WritesLines(t *testing.T) {
	dir := t.TempDir()
	tl := NewTraceLogger(dir, "debug")
	if tl == nil {
		t.Fatal("expected TraceLogger at debug level")
	}
	defer tl.Close()
	tl.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	tl.Log("day", map[string]any{"day": 7, "births": 3})
	tl.Log("finding", map[string]any{"check": "birth_total"})

	data, err := os.ReadFile(filepath.Join(dir, TraceFile))
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("parse line: %v", err)
	}
	if first["kind"] != "day" || first["day"] != 7.0 || first["births"] != 3.0 {
		t.Errorf("first entry = %v", first)
	}
	if first["time"] != "2026-01-02T03:04:05Z" {
		t.Errorf("time = %v", first["time"])
	}
	if !strings.Contains(lines[1], `"check":"birth_total"`) {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestTraceLogger_NilSafety(t *testing.T) {
	var tl *TraceLogger
	tl.Log("day", map[string]any{"day": 0})
	tl.Close()
}

func TestTraceLogger_DoesNotMutateCallerMap(t *testing.T) {
	tl := NewTraceLogger(t.TempDir(), "trace")
	defer tl.Close()

	fields := map[string]any{"day": 1}
	tl.Log("day", fields)

	if len(fields) != 1 {
		t.Errorf("Log() mutated caller map: %v", fields)
	}
}

func TestTraceLogger_LogAfterClose(t *testing.T) {
	tl := NewTraceLogger(t.TempDir(), "debug")
	tl.Log("day", map[string]any{"day": 1})
	tl.Close()
	tl.Log("day", map[string]any{"day": 2})
	tl.Close()
}

func TestNewTraceLogger_CreatesDirWithPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs", "trace")
	tl := NewTraceLogger(dir, "debug")
	if tl == nil {
		t.Fatal("expected non-nil TraceLogger when dir needs creation")
	}
	defer tl.Close()
	tl.Log("day", map[string]any{"day": 0})

	info, err := os.Stat(filepath.Join(dir, TraceFile))
	if err != nil {
		t.Fatalf("stat trace: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped")
}
