// Package config loads the YAML configuration for the flowercare CLI.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all CLI configuration.
type Config struct {
	Device   DeviceConfig  `yaml:"device"`
	Scan     ScanConfig    `yaml:"scan"`
	Monitor  MonitorConfig `yaml:"monitor"`
	LogLevel string        `yaml:"log_level"`
}

// DeviceConfig holds per-connection settings.
type DeviceConfig struct {
	Address        string   `yaml:"address"` // optional pinned device address
	ConnectTimeout Duration `yaml:"connect_timeout"`
	SettleDelay    Duration `yaml:"settle_delay"`
	RetryAttempts  int      `yaml:"retry_attempts"`
	RetryBackoff   Duration `yaml:"retry_backoff"`
}

// ScanConfig holds discovery settings.
type ScanConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// MonitorConfig holds continuous-monitoring settings.
type MonitorConfig struct {
	Interval    Duration `yaml:"interval"`
	Broker      string   `yaml:"broker"` // MQTT broker URL, e.g. tcp://localhost:1883
	TopicPrefix string   `yaml:"topic_prefix"`
	ClientID    string   `yaml:"client_id"`
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "flowercare", "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ConnectTimeout: Duration(10 * time.Second),
			SettleDelay:    Duration(500 * time.Millisecond),
			RetryAttempts:  3,
			RetryBackoff:   Duration(8 * time.Second),
		},
		Scan: ScanConfig{
			Timeout: Duration(10 * time.Second),
		},
		Monitor: MonitorConfig{
			Interval:    Duration(time.Minute),
			TopicPrefix: "flowercare",
			ClientID:    "flowercare-monitor",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Device.ConnectTimeout <= 0 {
		return fmt.Errorf("device.connect_timeout must be positive")
	}
	if c.Device.SettleDelay <= 0 {
		return fmt.Errorf("device.settle_delay must be positive")
	}
	if c.Device.RetryAttempts < 1 {
		return fmt.Errorf("device.retry_attempts must be at least 1")
	}
	if c.Scan.Timeout <= 0 {
		return fmt.Errorf("scan.timeout must be positive")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps log_level to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
}
