// Package config loads bridge settings from a TOML file with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment overrides. Each one wins over the config file value.
const (
	EnvDebounceMs = "GEMINI_BRIDGE_DEBOUNCE_MS"
	EnvWorkspace  = "GEMINI_BRIDGE_WORKSPACE"
	EnvDebug      = "GEMINI_BRIDGE_DEBUG"
)

// Debounce bounds in milliseconds. Values outside are clamped, not
// rejected, so a sloppy config file still yields a working bridge.
const (
	minDebounceMs     = 150
	maxDebounceMs     = 300
	defaultDebounceMs = 200
)

// Config holds bridge configuration.
type Config struct {
	// DebounceMs is the context-update debounce window in milliseconds.
	DebounceMs int `toml:"debounce_ms"`

	// WorkspacePath overrides the workspace advertised to clients.
	// Empty means use the current working directory.
	WorkspacePath string `toml:"workspace_path"`

	// Debug enables verbose event logging.
	Debug bool `toml:"debug"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		DebounceMs: defaultDebounceMs,
	}
}

// Debounce returns the debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Load reads configuration from path, or from the fallback chain when
// path is empty. A missing fallback file is not an error; a missing
// explicit file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	configPath := path
	if configPath == "" {
		configPath = ResolvePath()
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if path != "" {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
		} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	applyEnv(cfg)

	if cfg.DebounceMs < minDebounceMs {
		cfg.DebounceMs = minDebounceMs
	}
	if cfg.DebounceMs > maxDebounceMs {
		cfg.DebounceMs = maxDebounceMs
	}

	return cfg, nil
}

// ResolvePath returns the first existing config file in the fallback
// chain, or empty string when none exists.
func ResolvePath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		path := filepath.Join(xdg, "gemini-companion", "config.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "gemini-companion", "config.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDebounceMs); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.DebounceMs = ms
		}
	}
	if v := os.Getenv(EnvWorkspace); v != "" {
		cfg.WorkspacePath = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}
