package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/meowstack/agentflow/internal/config"
)

func TestNewForTestIsSilent(t *testing.T) {
	logger := NewForTest()
	logger.Info("should not appear anywhere observable")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("NewForTest logger unexpectedly enabled at info level")
	}
}

func TestNewFromConfigWritesJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Logging.Format = config.LogFormatJSON
	cfg.Logging.File = "state/agentflow.log"

	logger, closer, err := NewFromConfig(cfg, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer.Close()

	logger.Info("execution started", "execution_id", "exec-1")

	data, err := os.ReadFile(filepath.Join(dir, "state", "agentflow.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("expected valid JSON line, got %q: %v", data, err)
	}
	if entry["execution_id"] != "exec-1" {
		t.Errorf("entry[execution_id] = %v, want exec-1", entry["execution_id"])
	}
}

func TestWithHelpersAddFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	WithExecution(base, "exec-1", "wf-1").Info("step dispatched")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["execution_id"] != "exec-1" || entry["workflow_id"] != "wf-1" {
		t.Errorf("missing execution context: %#v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogLevelDebug, slog.LevelDebug},
		{config.LogLevelInfo, slog.LevelInfo},
		{config.LogLevelWarn, slog.LevelWarn},
		{config.LogLevelError, slog.LevelError},
		{config.LogLevel("bogus"), slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
