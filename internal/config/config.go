package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Size is a window size in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// LoggingConfig configures daemon logging.
type LoggingConfig struct {
	// Level controls logging verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is an optional log file path; empty logs to stderr only
	File string `yaml:"file,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	// Enabled turns activation coordination on/off
	Enabled bool `yaml:"enabled"`
	// CenterOnly centers the active window without changing its size
	CenterOnly bool `yaml:"center_only"`
	// TargetSize is the window size applied on activation
	TargetSize Size `yaml:"target_size"`
	// ExcludedApps lists application identifiers exempt from coordination (exact match)
	ExcludedApps []string `yaml:"excluded_apps"`
	// ShellApps lists extra identifiers treated as the desktop shell
	ShellApps []string `yaml:"shell_apps"`
	// LaunchCommands maps application identifiers to launch command lines
	LaunchCommands map[string]string `yaml:"launch_commands"`
	Logging        LoggingConfig     `yaml:"logging,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		CenterOnly:     false,
		TargetSize:     Size{Width: 1280, Height: 800},
		ExcludedApps:   []string{},
		ShellApps:      []string{},
		LaunchCommands: map[string]string{},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ValidationError reports an invalid configuration value by its YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate performs strict validation of the configuration.
func (c *Config) Validate() error {
	if c.TargetSize.Width <= 0 || c.TargetSize.Height <= 0 {
		return &ValidationError{Path: "target_size", Err: fmt.Errorf("width and height must be positive")}
	}
	for i, app := range c.ExcludedApps {
		if strings.TrimSpace(app) == "" {
			return &ValidationError{Path: fmt.Sprintf("excluded_apps[%d]", i), Err: fmt.Errorf("identifier must not be empty")}
		}
	}
	for i, app := range c.ShellApps {
		if strings.TrimSpace(app) == "" {
			return &ValidationError{Path: fmt.Sprintf("shell_apps[%d]", i), Err: fmt.Errorf("identifier must not be empty")}
		}
	}
	if c.LaunchCommands == nil {
		return &ValidationError{Path: "launch_commands", Err: fmt.Errorf("launch_commands must not be null")}
	}
	for appID, cmd := range c.LaunchCommands {
		if strings.TrimSpace(appID) == "" {
			return &ValidationError{Path: "launch_commands", Err: fmt.Errorf("launch_commands contains an empty identifier")}
		}
		if strings.TrimSpace(cmd) == "" {
			return &ValidationError{Path: "launch_commands." + appID, Err: fmt.Errorf("launch command must not be empty")}
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("logging.level must be one of: debug, info, warn, error")}
	}
	return nil
}

// IsExcluded reports whether the identifier is in excluded_apps.
func (c *Config) IsExcluded(appID string) bool {
	for _, excluded := range c.ExcludedApps {
		if excluded == appID {
			return true
		}
	}
	return false
}

// IsShellApp reports whether the identifier is configured as a desktop
// shell, in addition to shells the window system detects itself.
func (c *Config) IsShellApp(appID string) bool {
	for _, shell := range c.ShellApps {
		if shell == appID {
			return true
		}
	}
	return false
}

// LaunchCommand returns the configured launch command line for the
// identifier.
func (c *Config) LaunchCommand(appID string) (string, bool) {
	cmd, ok := c.LaunchCommands[appID]
	return cmd, ok
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments
// from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path, validating it first.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetEnabled loads the on-disk configuration, updates the enabled flag and
// writes it back, so enable/disable survives daemon restarts.
func SetEnabled(path string, enabled bool) error {
	cfg, err := LoadFromPath(path)
	if err != nil {
		return err
	}
	cfg.Enabled = enabled
	return cfg.SaveTo(path)
}
