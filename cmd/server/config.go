// Package main provides the Salescope server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Verbose    bool             `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	HTTPAddress    string `yaml:"http_address"`    // operational API address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus address (default: :9091)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // metadata database path
}

// ClickHouseConfig contains metric store settings.
type ClickHouseConfig struct {
	Addresses     []string `yaml:"addresses"`
	Database      string   `yaml:"database"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	Compression   bool     `yaml:"compression"`
	RetentionDays int      `yaml:"retention_days"`
}

// SMTPConfig contains outbound mail settings. The password is read from the
// SALESCOPE_SMTP_PASSWORD environment variable, never from the file.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	From     string `yaml:"from"`
}

// AnalyticsConfig contains baseline, threshold, and schedule settings.
type AnalyticsConfig struct {
	BaselineWindow int           `yaml:"baseline_window"` // trailing samples per baseline (default: 14)
	MinSamples     int           `yaml:"min_samples"`     // below this, detection is skipped (default: 5)
	WarningZ       float64       `yaml:"warning_z"`       // |z| >= warning_z -> warning (default: 2.0)
	CriticalZ      float64       `yaml:"critical_z"`      // |z| >= critical_z -> critical (default: 3.0)
	HorizonDays    int           `yaml:"horizon_days"`    // forecast horizon (default: 30)
	HistoryDays    int           `yaml:"history_days"`    // forecast history window (default: 56)
	ForecastAt     string        `yaml:"forecast_at"`     // daily forecast time "15:04" (default: 02:30)
	Timezone       string        `yaml:"timezone"`        // timezone for forecast_at (default: UTC)
	DetectInterval time.Duration `yaml:"detect_interval"` // detection cadence (default: 5m)
}

// DispatchConfig contains alert dispatch settings.
type DispatchConfig struct {
	Workers        int           `yaml:"workers"`         // dispatch workers (default: 2)
	QueueSize      int           `yaml:"queue_size"`      // queue capacity (default: 256)
	MaxAttempts    int           `yaml:"max_attempts"`    // attempts per dispatch (default: 3)
	RetryDelay     time.Duration `yaml:"retry_delay"`     // delay between attempts (default: 60s)
	AttemptTimeout time.Duration `yaml:"attempt_timeout"` // per-attempt timeout (default: 120s)
	RatePerMinute  int           `yaml:"rate_per_minute"` // outbound send pacing (default: 30)
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9091"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/salescope.db"
	}
	if len(c.ClickHouse.Addresses) == 0 {
		c.ClickHouse.Addresses = []string{"localhost:9000"}
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "salescope"
	}
	if c.ClickHouse.RetentionDays == 0 {
		c.ClickHouse.RetentionDays = 90
	}
	if c.Analytics.BaselineWindow == 0 {
		c.Analytics.BaselineWindow = 14
	}
	if c.Analytics.MinSamples == 0 {
		c.Analytics.MinSamples = 5
	}
	if c.Analytics.WarningZ == 0 {
		c.Analytics.WarningZ = 2.0
	}
	if c.Analytics.CriticalZ == 0 {
		c.Analytics.CriticalZ = 3.0
	}
	if c.Analytics.HorizonDays == 0 {
		c.Analytics.HorizonDays = 30
	}
	if c.Analytics.HistoryDays == 0 {
		c.Analytics.HistoryDays = 56
	}
	if c.Analytics.ForecastAt == "" {
		c.Analytics.ForecastAt = "02:30"
	}
	if c.Analytics.Timezone == "" {
		c.Analytics.Timezone = "UTC"
	}
	if c.Analytics.DetectInterval == 0 {
		c.Analytics.DetectInterval = 5 * time.Minute
	}
	if c.Dispatch.Workers == 0 {
		c.Dispatch.Workers = 2
	}
	if c.Dispatch.QueueSize == 0 {
		c.Dispatch.QueueSize = 256
	}
	if c.Dispatch.MaxAttempts == 0 {
		c.Dispatch.MaxAttempts = 3
	}
	if c.Dispatch.RetryDelay == 0 {
		c.Dispatch.RetryDelay = 60 * time.Second
	}
	if c.Dispatch.AttemptTimeout == 0 {
		c.Dispatch.AttemptTimeout = 120 * time.Second
	}
	if c.Dispatch.RatePerMinute == 0 {
		c.Dispatch.RatePerMinute = 30
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.ClickHouse.Addresses) == 0 {
		return fmt.Errorf("clickhouse.addresses is required")
	}
	if c.Analytics.WarningZ <= 0 {
		return fmt.Errorf("analytics.warning_z must be positive")
	}
	if c.Analytics.CriticalZ < c.Analytics.WarningZ {
		return fmt.Errorf("analytics.critical_z must be >= analytics.warning_z")
	}
	if c.Analytics.MinSamples < 1 {
		return fmt.Errorf("analytics.min_samples must be at least 1")
	}
	if c.Analytics.BaselineWindow < c.Analytics.MinSamples {
		return fmt.Errorf("analytics.baseline_window must be >= analytics.min_samples")
	}
	if _, err := time.Parse("15:04", c.Analytics.ForecastAt); err != nil {
		return fmt.Errorf("analytics.forecast_at must be in HH:MM form: %w", err)
	}
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("analytics.timezone: %w", err)
	}
	if c.Analytics.DetectInterval < time.Minute {
		return fmt.Errorf("analytics.detect_interval must be at least 1m")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when smtp.host is set")
	}
	return nil
}
