// Package config provides layered TOML configuration for agentflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// OrchestratorConfig holds orchestrator-wide execution settings.
type OrchestratorConfig struct {
	PollInterval          time.Duration `toml:"poll_interval"`
	DefaultLoopBound      int           `toml:"default_loop_bound"`
	DefaultRollbackDeadline time.Duration `toml:"default_rollback_deadline"`
	MaxExecutionsPerSecond float64      `toml:"max_executions_per_second"` // 0 disables rate limiting
	// DefaultMaxExecutionTime is the overall execution deadline applied when
	// a workflow declares no constraints.timeLimit.maxExecutionTime of its
	// own (spec.md §5). 0 means unbounded.
	DefaultMaxExecutionTime time.Duration `toml:"default_max_execution_time"`
}

// MandateTTLConfig holds per-kind mandate expiry durations.
type MandateTTLConfig struct {
	Intent   time.Duration `toml:"intent"`
	Cart     time.Duration `toml:"cart"`
	Payment  time.Duration `toml:"payment"`
	Approval time.Duration `toml:"approval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend  string `toml:"backend"` // "memory" or "redis"
	RedisAddr string `toml:"redis_addr"`
}

// Config is the main configuration struct for agentflow.
type Config struct {
	Version      string             `toml:"version"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Mandate      MandateTTLConfig   `toml:"mandate"`
	Logging      LoggingConfig      `toml:"logging"`
	Store        StoreConfig        `toml:"store"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Orchestrator: OrchestratorConfig{
			PollInterval:            100 * time.Millisecond,
			DefaultLoopBound:        100,
			DefaultRollbackDeadline: 30 * time.Second,
			MaxExecutionsPerSecond:  0,
			DefaultMaxExecutionTime: 0,
		},
		Mandate: MandateTTLConfig{
			Intent:   24 * time.Hour,
			Cart:     time.Hour,
			Payment:  15 * time.Minute,
			Approval: 72 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatJSON,
			File:   ".agentflow/state/agentflow.log",
		},
		Store: StoreConfig{
			Backend: "memory",
		},
	}
}

// Load loads configuration from file, merging with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // use defaults if no config file
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from the standard locations in a directory.
// Applies in order: defaults -> ~/.agentflow/config.toml -> .agentflow/config.toml
// Later configs override earlier ones (project-level takes precedence).
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err == nil {
		globalConfig := filepath.Join(home, ".agentflow", "config.toml")
		if data, err := os.ReadFile(globalConfig); err == nil {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		}
	}

	projectConfig := filepath.Join(dir, ".agentflow", "config.toml")
	if data, err := os.ReadFile(projectConfig); err == nil {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing project config: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that the configuration is well-formed.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("config version is required")
	}
	if c.Orchestrator.PollInterval <= 0 {
		return fmt.Errorf("orchestrator.poll_interval must be positive")
	}
	if c.Orchestrator.DefaultLoopBound <= 0 {
		return fmt.Errorf("orchestrator.default_loop_bound must be positive")
	}
	if c.Orchestrator.MaxExecutionsPerSecond < 0 {
		return fmt.Errorf("orchestrator.max_executions_per_second must not be negative")
	}
	if c.Orchestrator.DefaultMaxExecutionTime < 0 {
		return fmt.Errorf("orchestrator.default_max_execution_time must not be negative")
	}
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("store.backend must be \"memory\" or \"redis\", got %q", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.RedisAddr == "" {
		return fmt.Errorf("store.redis_addr is required when store.backend is \"redis\"")
	}
	return nil
}

// LogFile returns the absolute log file path.
func (c *Config) LogFile(baseDir string) string {
	if filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(baseDir, c.Logging.File)
}
