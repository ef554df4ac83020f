package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.Device.ConnectTimeout.Std() != 10*time.Second {
		t.Errorf("ConnectTimeout = %s, want 10s", cfg.Device.ConnectTimeout.Std())
	}
	if cfg.Device.SettleDelay.Std() != 500*time.Millisecond {
		t.Errorf("SettleDelay = %s, want 500ms", cfg.Device.SettleDelay.Std())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
device:
  address: "C4:7C:8D:6A:6E:01"
  connect_timeout: 5s
  settle_delay: 1200ms
scan:
  timeout: 30s
monitor:
  interval: 5m
  broker: tcp://localhost:1883
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.Address != "C4:7C:8D:6A:6E:01" {
		t.Errorf("Address = %q", cfg.Device.Address)
	}
	if cfg.Device.ConnectTimeout.Std() != 5*time.Second {
		t.Errorf("ConnectTimeout = %s, want 5s", cfg.Device.ConnectTimeout.Std())
	}
	if cfg.Device.SettleDelay.Std() != 1200*time.Millisecond {
		t.Errorf("SettleDelay = %s, want 1.2s", cfg.Device.SettleDelay.Std())
	}
	if cfg.Monitor.Interval.Std() != 5*time.Minute {
		t.Errorf("Interval = %s, want 5m", cfg.Monitor.Interval.Std())
	}
	// Unset fields keep their defaults.
	if cfg.Device.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want default 3", cfg.Device.RetryAttempts)
	}
	if cfg.Monitor.TopicPrefix != "flowercare" {
		t.Errorf("TopicPrefix = %q, want default", cfg.Monitor.TopicPrefix)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scan:\n  timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() with invalid duration succeeded, want error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() with missing file succeeded, want error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Scan.Timeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with zero scan timeout succeeded, want error")
	}

	cfg = Default()
	cfg.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with bad log level succeeded, want error")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.LogLevel = tt.in
		got, err := cfg.SlogLevel()
		if err != nil {
			t.Errorf("SlogLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
