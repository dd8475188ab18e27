package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != "1" {
		t.Errorf("Version = %q, want %q", cfg.Version, "1")
	}
	if cfg.Orchestrator.DefaultLoopBound != 100 {
		t.Errorf("DefaultLoopBound = %d, want 100", cfg.Orchestrator.DefaultLoopBound)
	}
	if cfg.Mandate.Payment != 15*time.Minute {
		t.Errorf("Mandate.Payment = %v, want 15m", cfg.Mandate.Payment)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Orchestrator.DefaultLoopBound != Default().Orchestrator.DefaultLoopBound {
		t.Error("expected defaults when config file is absent")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentflow.toml")
	body := `
version = "1"

[orchestrator]
default_loop_bound = 25

[logging]
level = "debug"
format = "text"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Orchestrator.DefaultLoopBound != 25 {
		t.Errorf("DefaultLoopBound = %d, want 25", cfg.Orchestrator.DefaultLoopBound)
	}
	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Mandate.Payment != Default().Mandate.Payment {
		t.Error("expected untouched mandate TTLs to keep their defaults")
	}
}

func TestLoadFromDirLayersGlobalThenProject(t *testing.T) {
	projectDir := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)

	globalDir := filepath.Join(home, ".agentflow")
	if err := os.MkdirAll(globalDir, 0o755); err != nil {
		t.Fatalf("mkdir global config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(globalDir, "config.toml"), []byte(`
version = "1"
[logging]
level = "warn"
format = "text"
`), 0o644); err != nil {
		t.Fatalf("writing global fixture: %v", err)
	}

	projectConfigDir := filepath.Join(projectDir, ".agentflow")
	if err := os.MkdirAll(projectConfigDir, 0o755); err != nil {
		t.Fatalf("mkdir project config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(projectConfigDir, "config.toml"), []byte(`
version = "1"
[logging]
level = "debug"
`), 0o644); err != nil {
		t.Fatalf("writing project fixture: %v", err)
	}

	cfg, err := LoadFromDir(projectDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("project config should win: Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != LogFormatText {
		t.Error("global-only field should survive since project config didn't override it")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"missing version", func(c *Config) { c.Version = "" }, true},
		{"non-positive poll interval", func(c *Config) { c.Orchestrator.PollInterval = 0 }, true},
		{"non-positive loop bound", func(c *Config) { c.Orchestrator.DefaultLoopBound = 0 }, true},
		{"negative rate limit", func(c *Config) { c.Orchestrator.MaxExecutionsPerSecond = -1 }, true},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "sqlite" }, true},
		{"redis backend without addr", func(c *Config) { c.Store.Backend = "redis" }, true},
		{"redis backend with addr", func(c *Config) { c.Store.Backend = "redis"; c.Store.RedisAddr = "localhost:6379" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogFile(t *testing.T) {
	cfg := Default()
	cfg.Logging.File = "state/agentflow.log"

	got := cfg.LogFile("/base")
	want := filepath.Join("/base", "state/agentflow.log")
	if got != want {
		t.Errorf("LogFile() = %q, want %q", got, want)
	}

	cfg.Logging.File = "/abs/agentflow.log"
	if got := cfg.LogFile("/base"); got != "/abs/agentflow.log" {
		t.Errorf("LogFile() with absolute path = %q, want /abs/agentflow.log", got)
	}
}
