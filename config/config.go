// Package config handles reading and writing the scanner's config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Cooldown bounds offered by the cooldown selector
const (
	MinCooldown = 0
	MaxCooldown = 10
)

// FileName is the config file looked up next to the executable
const FileName = "config.yaml"

// Config is the top-level structure for config.yaml.
type Config struct {
	CooldownSeconds int           `yaml:"cooldown_seconds"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	ProbeCount      int           `yaml:"probe_count"`
	Display         DisplayConfig `yaml:"display"`
	Beep            bool          `yaml:"beep"`
	Clipboard       bool          `yaml:"clipboard"`
	AutoStart       bool          `yaml:"auto_start"`
	ArchivePath     string        `yaml:"archive_path"` // empty disables the archive
	LogFile         string        `yaml:"log_file"`
}

// DisplayConfig is the size of the rendered video pane.
type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultConfig returns a Config populated with the scanner defaults.
func DefaultConfig() *Config {
	return &Config{
		CooldownSeconds: 2,
		TickInterval:    10 * time.Millisecond,
		ProbeCount:      10,
		Display: DisplayConfig{
			Width:  800,
			Height: 450,
		},
		Beep:      true,
		Clipboard: true,
		AutoStart: true,
	}
}

// ReadConfig reads the yaml file at path on top of the defaults.
// Keys missing from the file keep their default values.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to path, creating parent directories as needed.
func WriteConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate returns a list of problems; an empty list means the config is usable.
func (c *Config) Validate() []string {
	var errs []string

	if c.CooldownSeconds < MinCooldown || c.CooldownSeconds > MaxCooldown {
		errs = append(errs, fmt.Sprintf("cooldown_seconds must be between %d and %d", MinCooldown, MaxCooldown))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, "tick_interval must be positive")
	}
	if c.ProbeCount < 1 {
		errs = append(errs, "probe_count must be at least 1")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, "display width and height must be positive")
	}

	return errs
}
