// Package config provides configuration management for the clip agent.
// Configuration is loaded from environment variables (and an optional .env
// file) with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	// Default values
	DefaultPort     = 5000
	DefaultLogLevel = "info"
	DefaultDataDir  = ".clip-agent"

	// Environment variable names
	EnvPort              = "CLIPAGENT_PORT"
	EnvLogLevel          = "CLIPAGENT_LOG_LEVEL"
	EnvDataDir           = "CLIPAGENT_DATA_DIR"
	EnvAutoSaveDir       = "CLIPAGENT_AUTOSAVE_DIR"
	EnvSnapshotRetention = "CLIPAGENT_SNAPSHOT_RETENTION"
	EnvPlayerURL         = "CLIPAGENT_PLAYER_URL"
	EnvPlayerTimeout     = "CLIPAGENT_PLAYER_TIMEOUT"
	EnvSessionIdleTTL    = "CLIPAGENT_SESSION_IDLE_TTL"
	EnvRenderCommand     = "CLIPAGENT_RENDER_COMMAND"
	EnvRenderArgs        = "CLIPAGENT_RENDER_ARGS"
	EnvRenderWorkers     = "CLIPAGENT_RENDER_WORKERS"
	EnvHeadless          = "CLIPAGENT_HEADLESS"

	// Database filename
	DBFilename = "clip-agent.db"

	// AutoSaveDirname is the auto-save directory name under the data dir.
	AutoSaveDirname = "auto-save"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	AutoSaveDir() string
	SnapshotRetention() time.Duration
	PlayerURL() string
	PlayerTimeout() time.Duration
	SessionIdleTTL() time.Duration
	RenderCommand() string
	RenderArgs() []string
	RenderWorkers() int
	Headless() bool
}

type vars struct {
	Port              int           `env:"CLIPAGENT_PORT" default:"5000"`
	LogLevel          string        `env:"CLIPAGENT_LOG_LEVEL" default:"info"`
	DataDir           string        `env:"CLIPAGENT_DATA_DIR"`
	AutoSaveDir       string        `env:"CLIPAGENT_AUTOSAVE_DIR"`
	SnapshotRetention time.Duration `env:"CLIPAGENT_SNAPSHOT_RETENTION" default:"120h"` // 5 days
	PlayerURL         string        `env:"CLIPAGENT_PLAYER_URL" default:"http://127.0.0.1:13579"`
	PlayerTimeout     time.Duration `env:"CLIPAGENT_PLAYER_TIMEOUT" default:"5s"`
	SessionIdleTTL    time.Duration `env:"CLIPAGENT_SESSION_IDLE_TTL" default:"24h"`
	RenderCommand     string        `env:"CLIPAGENT_RENDER_COMMAND"`
	RenderArgs        string        `env:"CLIPAGENT_RENDER_ARGS"`
	RenderWorkers     int           `env:"CLIPAGENT_RENDER_WORKERS" default:"2"`
	Headless          bool          `env:"CLIPAGENT_HEADLESS" default:"false"`
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	v vars
}

// New creates a new EnvConfig with defaults and environment variable overrides.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func New() (*EnvConfig, error) {
	_ = godotenv.Load()

	var v vars
	if err := env.Load(&v, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if v.DataDir == "" {
		v.DataDir = defaultDataDir()
	}
	if v.AutoSaveDir == "" {
		v.AutoSaveDir = filepath.Join(v.DataDir, AutoSaveDirname)
	}
	v.PlayerURL = strings.TrimRight(v.PlayerURL, "/")

	if err := validate(&v); err != nil {
		return nil, err
	}

	return &EnvConfig{v: v}, nil
}

func validate(v *vars) error {
	if v.Port < 1 || v.Port > 65535 {
		return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
	}
	if v.SnapshotRetention <= 0 {
		return fmt.Errorf("invalid %s: retention must be positive", EnvSnapshotRetention)
	}
	if v.PlayerTimeout <= 0 {
		return fmt.Errorf("invalid %s: timeout must be positive", EnvPlayerTimeout)
	}
	if v.SessionIdleTTL < 0 {
		return fmt.Errorf("invalid %s: ttl must not be negative", EnvSessionIdleTTL)
	}
	if v.RenderWorkers < 1 {
		return fmt.Errorf("invalid %s: need at least one worker", EnvRenderWorkers)
	}
	if v.PlayerURL == "" {
		return errors.New(EnvPlayerURL + " is required")
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.v.Port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.v.LogLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.v.DataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.v.DataDir, DBFilename)
}

// AutoSaveDir returns the directory holding session snapshots
func (c *EnvConfig) AutoSaveDir() string {
	return c.v.AutoSaveDir
}

// SnapshotRetention returns how long snapshots survive the startup sweep
func (c *EnvConfig) SnapshotRetention() time.Duration {
	return c.v.SnapshotRetention
}

// PlayerURL returns the base URL of the media player's web interface
func (c *EnvConfig) PlayerURL() string {
	return c.v.PlayerURL
}

func (c *EnvConfig) PlayerTimeout() time.Duration {
	return c.v.PlayerTimeout
}

// SessionIdleTTL returns the idle time after which a session is evicted.
// Zero disables eviction.
func (c *EnvConfig) SessionIdleTTL() time.Duration {
	return c.v.SessionIdleTTL
}

func (c *EnvConfig) RenderCommand() string {
	return c.v.RenderCommand
}

func (c *EnvConfig) RenderArgs() []string {
	return strings.Fields(c.v.RenderArgs)
}

func (c *EnvConfig) RenderWorkers() int {
	return c.v.RenderWorkers
}

func (c *EnvConfig) Headless() bool {
	return c.v.Headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
