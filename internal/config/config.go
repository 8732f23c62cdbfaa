// Package config provides configuration management for trailhead.
//
// Config lives in a YAML file under the data directory so every process
// (hooks, CLI, server, watcher) sees the same tunables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultVerboseThreshold = 5
	DefaultInactivityMins   = 30
	DefaultMaxTrailerFiles  = 8
	DefaultServerPort       = 7433
)

// Config holds all trailhead settings.
//
// The server mutates a Config shared with the engine while other
// requests read it, so the keyed accessors and Save take mu. Direct
// field access is for single-goroutine use (load, tests, CLI).
type Config struct {
	mu sync.RWMutex

	// VerboseThreshold is the prompt count at or below which trailers
	// render every prompt. 0 forces condensed mode unconditionally.
	VerboseThreshold int `yaml:"verbose_threshold"`
	// InactivityWindowMinutes is the gap after which a session closes.
	InactivityWindowMinutes int `yaml:"inactivity_window_minutes"`
	// MaxTrailerFiles caps the file list in condensed trailers.
	MaxTrailerFiles int `yaml:"max_trailer_files"`
	// ServerPort is the localhost introspection API port.
	ServerPort int `yaml:"server_port"`
	// WatchDir overrides the transcript directory watched by `trailhead watch`.
	WatchDir string `yaml:"watch_dir,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		VerboseThreshold:        DefaultVerboseThreshold,
		InactivityWindowMinutes: DefaultInactivityMins,
		MaxTrailerFiles:         DefaultMaxTrailerFiles,
		ServerPort:              DefaultServerPort,
	}
}

// InactivityWindow returns the session inactivity window as a duration.
func (c *Config) InactivityWindow() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.InactivityWindowMinutes) * time.Minute
}

// Threshold returns the verbose-rendering prompt threshold.
func (c *Config) Threshold() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.VerboseThreshold
}

// TrailerFileCap returns the condensed-trailer file list cap.
func (c *Config) TrailerFileCap() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MaxTrailerFiles
}

// Port returns the introspection server port.
func (c *Config) Port() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerPort
}

// DataDir returns the trailhead data directory
// (TRAILHEAD_DATA_DIR or ~/.trailhead).
func DataDir() string {
	if dir := os.Getenv("TRAILHEAD_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trailhead"
	}
	return filepath.Join(home, ".trailhead")
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "trailhead.db")
}

// ConfigPath returns the YAML config file path.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// Load reads the config file, filling defaults for absent keys. A missing
// file is not an error; defaults are returned.
func Load() (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(ConfigPath())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.VerboseThreshold < 0 {
		cfg.VerboseThreshold = DefaultVerboseThreshold
	}
	if cfg.InactivityWindowMinutes <= 0 {
		cfg.InactivityWindowMinutes = DefaultInactivityMins
	}
	if cfg.MaxTrailerFiles <= 0 {
		cfg.MaxTrailerFiles = DefaultMaxTrailerFiles
	}
	return cfg, nil
}

// Save writes the config file.
func (c *Config) Save() error {
	if err := EnsureDataDir(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	c.mu.RLock()
	data, err := yaml.Marshal(c)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Value returns a tunable by key, for the config get/set surface.
func (c *Config) Value(key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch key {
	case "verbose_threshold":
		return strconv.Itoa(c.VerboseThreshold), nil
	case "inactivity_window_minutes":
		return strconv.Itoa(c.InactivityWindowMinutes), nil
	case "max_trailer_files":
		return strconv.Itoa(c.MaxTrailerFiles), nil
	case "server_port":
		return strconv.Itoa(c.ServerPort), nil
	case "watch_dir":
		return c.WatchDir, nil
	}
	return "", fmt.Errorf("unknown config key %q", key)
}

// SetValue validates and sets a tunable by key. The caller saves.
func (c *Config) SetValue(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch key {
	case "verbose_threshold":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("verbose_threshold must be a non-negative integer")
		}
		c.VerboseThreshold = n
	case "inactivity_window_minutes":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("inactivity_window_minutes must be a positive integer")
		}
		c.InactivityWindowMinutes = n
	case "max_trailer_files":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("max_trailer_files must be a positive integer")
		}
		c.MaxTrailerFiles = n
	case "server_port":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("server_port must be a valid port number")
		}
		c.ServerPort = n
	case "watch_dir":
		c.WatchDir = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
