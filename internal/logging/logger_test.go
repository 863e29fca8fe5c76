package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrettyHandlerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	handler := newPrettyHandler(&buf, levelVar)
	logger := slog.New(handler).With(FieldComponent, "migrator")

	logger.Info("uploaded asset", "path", "/photos/a.jpg", "size", 42)

	line := buf.String()
	if !strings.Contains(line, "INFO migrator: uploaded asset") {
		t.Fatalf("formatted line missing component prefix: %q", line)
	}
	if !strings.Contains(line, "path=/photos/a.jpg") {
		t.Fatalf("formatted line missing path field: %q", line)
	}
	if !strings.Contains(line, "size=42") {
		t.Fatalf("formatted line missing size field: %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	handler := newPrettyHandler(&buf, new(slog.LevelVar))
	logger := slog.New(handler)

	logger.Warn("upload failed", "error", "connection reset by peer")

	if !strings.Contains(buf.String(), `error="connection reset by peer"`) {
		t.Fatalf("expected quoted value in output: %q", buf.String())
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	handler := newPrettyHandler(&buf, levelVar)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}

	slog.New(handler).Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected no output for suppressed record, got %q", buf.String())
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "run.log")

	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hello", "k", "v")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("json log missing message: %q", string(data))
	}
	if !strings.Contains(string(data), `"level":"debug"`) {
		t.Fatalf("json log missing level: %q", string(data))
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not enable any level")
	}
}
