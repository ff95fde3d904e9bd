package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("http address = %q, want :8080", cfg.Server.HTTPAddress)
	}
	if cfg.Server.MetricsAddress != ":9091" {
		t.Errorf("metrics address = %q, want :9091", cfg.Server.MetricsAddress)
	}
	if cfg.Analytics.BaselineWindow != 14 {
		t.Errorf("baseline window = %d, want 14", cfg.Analytics.BaselineWindow)
	}
	if cfg.Analytics.MinSamples != 5 {
		t.Errorf("min samples = %d, want 5", cfg.Analytics.MinSamples)
	}
	if cfg.Analytics.WarningZ != 2.0 || cfg.Analytics.CriticalZ != 3.0 {
		t.Errorf("thresholds = %v/%v, want 2.0/3.0", cfg.Analytics.WarningZ, cfg.Analytics.CriticalZ)
	}
	if cfg.Analytics.HorizonDays != 30 {
		t.Errorf("horizon = %d, want 30", cfg.Analytics.HorizonDays)
	}
	if cfg.Analytics.DetectInterval != 5*time.Minute {
		t.Errorf("detect interval = %v, want 5m", cfg.Analytics.DetectInterval)
	}
	if cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want 3", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Dispatch.RetryDelay != 60*time.Second {
		t.Errorf("retry delay = %v, want 60s", cfg.Dispatch.RetryDelay)
	}
	if cfg.Dispatch.AttemptTimeout != 120*time.Second {
		t.Errorf("attempt timeout = %v, want 120s", cfg.Dispatch.AttemptTimeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_address: ":9000"
database:
  path: /tmp/salescope.db
clickhouse:
  addresses: ["ch1:9000", "ch2:9000"]
  database: metrics
analytics:
  warning_z: 1.5
  critical_z: 4.0
  forecast_at: "03:15"
  detect_interval: 10m
dispatch:
  workers: 4
  rate_per_minute: 60
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.HTTPAddress != ":9000" {
		t.Errorf("http address = %q, want :9000", cfg.Server.HTTPAddress)
	}
	if len(cfg.ClickHouse.Addresses) != 2 {
		t.Errorf("clickhouse addresses = %v, want 2", cfg.ClickHouse.Addresses)
	}
	if cfg.Analytics.WarningZ != 1.5 || cfg.Analytics.CriticalZ != 4.0 {
		t.Errorf("thresholds = %v/%v, want 1.5/4.0", cfg.Analytics.WarningZ, cfg.Analytics.CriticalZ)
	}
	if cfg.Analytics.ForecastAt != "03:15" {
		t.Errorf("forecast at = %q, want 03:15", cfg.Analytics.ForecastAt)
	}
	if cfg.Analytics.DetectInterval != 10*time.Minute {
		t.Errorf("detect interval = %v, want 10m", cfg.Analytics.DetectInterval)
	}
	if cfg.Dispatch.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Dispatch.Workers)
	}

	// Unset fields still get defaults.
	if cfg.Analytics.BaselineWindow != 14 {
		t.Errorf("baseline window = %d, want default 14", cfg.Analytics.BaselineWindow)
	}
	if cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want default 3", cfg.Dispatch.MaxAttempts)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("missing file should be an error")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted thresholds", func(c *Config) { c.Analytics.WarningZ = 4; c.Analytics.CriticalZ = 2 }},
		{"zero warning threshold", func(c *Config) { c.Analytics.WarningZ = -1 }},
		{"bad forecast time", func(c *Config) { c.Analytics.ForecastAt = "25:00" }},
		{"bad timezone", func(c *Config) { c.Analytics.Timezone = "Mars/Olympus" }},
		{"window below min samples", func(c *Config) { c.Analytics.BaselineWindow = 3 }},
		{"detect interval too short", func(c *Config) { c.Analytics.DetectInterval = time.Second }},
		{"smtp host without from", func(c *Config) { c.SMTP.Host = "smtp.example.com" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
