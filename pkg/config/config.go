// Package config loads flagpin's YAML configuration.
//
// A missing file is not an error: Load returns Default(). Values present in
// the file override the defaults field by field.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config is the full flagpin configuration.
type Config struct {
	// Browser selects how pages are reached.
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Channel tunes the probe/install/retry loop.
	Channel ChannelConfig `yaml:"channel" json:"channel"`

	// Capability extends the built-in injection denylist.
	Capability CapabilityConfig `yaml:"capability" json:"capability"`

	// Store locates the override registry file.
	Store StoreConfig `yaml:"store" json:"store"`

	// Logging configures the session log.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Path is the file the configuration was loaded from, if any.
	Path string `yaml:"-" json:"-"`
}

// BrowserConfig defines how the browser is obtained.
type BrowserConfig struct {
	CDPURL   string        `yaml:"cdp_url" json:"cdp_url"`   // Attach to a running browser when set
	Headless bool          `yaml:"headless" json:"headless"` // Only used when launching
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// ChannelConfig defines the page channel retry policy.
type ChannelConfig struct {
	Attempts    int           `yaml:"attempts" json:"attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
}

// CapabilityConfig defines extra hosts that must never be injected into.
type CapabilityConfig struct {
	DeniedHosts []string `yaml:"denied_hosts" json:"denied_hosts"`
}

// StoreConfig defines where overrides are persisted.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// MetricsConfig defines metrics configuration
type MetricsConfig struct {
	Namespace string `yaml:"namespace" json:"namespace"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless: false,
			Timeout:  30 * time.Second,
		},
		Channel: ChannelConfig{
			Attempts:    5,
			RetryDelay:  200 * time.Millisecond,
			SettleDelay: 300 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Namespace: "flagpin",
		},
	}
}

// DefaultPath returns ~/.flagpin/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".flagpin", "config.yaml"), nil
}

// Load reads the configuration at path (DefaultPath when empty) on top of
// Default and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.Path = path

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Channel.Attempts < 1 {
		return fmt.Errorf("channel.attempts must be at least 1")
	}
	if c.Channel.RetryDelay < 0 {
		return fmt.Errorf("channel.retry_delay cannot be negative")
	}
	if c.Channel.SettleDelay < 0 {
		return fmt.Errorf("channel.settle_delay cannot be negative")
	}
	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser.timeout cannot be negative")
	}

	for _, pattern := range c.Capability.DeniedHosts {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			return fmt.Errorf("invalid denied host pattern %q: %w", pattern, err)
		}
	}
	return nil
}
