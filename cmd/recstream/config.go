package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds tool-wide defaults. All fields are optional; flags win.
type Config struct {
	// MaxDump caps the records printed by dump; 0 means unlimited.
	MaxDump int `json:"max_dump,omitempty"`
	// Hex forces hex payload output even for printable payloads.
	Hex bool `json:"hex,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`
}

// ConfigFileName is the project-local config file name.
const ConfigFileName = ".recstream.json"

var errConfigInvalid = errors.New("invalid config file")

// DefaultConfig returns the defaults used when no config file exists.
func DefaultConfig() Config {
	return Config{LogLevel: "info"}
}

// LoadConfig loads configuration with the following precedence (highest
// wins): defaults, global user config, project config in the working
// directory. Config files are JSONC.
func LoadConfig(environ []string) (Config, error) {
	cfg := DefaultConfig()

	if path := globalConfigPath(environ); path != "" {
		loaded, ok, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}

		if ok {
			cfg = mergeConfig(cfg, loaded)
		}
	}

	loaded, ok, err := loadConfigFile(ConfigFileName)
	if err != nil {
		return Config{}, err
	}

	if ok {
		cfg = mergeConfig(cfg, loaded)
	}

	return cfg, nil
}

// globalConfigPath resolves $XDG_CONFIG_HOME/recstream/config.json,
// falling back to ~/.config. Empty when no home directory is known.
func globalConfigPath(environ []string) string {
	for _, e := range environ {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok && after != "" {
			return filepath.Join(after, "recstream", "config.json")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "recstream", "config.json")
}

// loadConfigFile parses one JSONC config file. Missing files are not an
// error.
func loadConfigFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", errConfigInvalid, path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.MaxDump != 0 {
		base.MaxDump = overlay.MaxDump
	}

	if overlay.Hex {
		base.Hex = true
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	return base
}
