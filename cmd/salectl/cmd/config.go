package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/salescope/internal/storage"
)

// cliConfig is the subset of the server configuration the CLI needs: where
// the metadata database lives, how to reach the metric store, and the
// analytics parameters for on-demand job runs.
type cliConfig struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	ClickHouse struct {
		Addresses     []string `yaml:"addresses"`
		Database      string   `yaml:"database"`
		Username      string   `yaml:"username"`
		Password      string   `yaml:"password"`
		Compression   bool     `yaml:"compression"`
		RetentionDays int      `yaml:"retention_days"`
	} `yaml:"clickhouse"`
	Analytics struct {
		BaselineWindow int     `yaml:"baseline_window"`
		MinSamples     int     `yaml:"min_samples"`
		WarningZ       float64 `yaml:"warning_z"`
		CriticalZ      float64 `yaml:"critical_z"`
		HorizonDays    int     `yaml:"horizon_days"`
		HistoryDays    int     `yaml:"history_days"`
	} `yaml:"analytics"`
}

// loadCLIConfig reads the server config file. All fields fall back to the
// same defaults the server uses, so a partial file is fine.
func loadCLIConfig(path string) (*cliConfig, error) {
	cfg := &cliConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDBPath
	}
	if len(cfg.ClickHouse.Addresses) == 0 {
		cfg.ClickHouse.Addresses = []string{"localhost:9000"}
	}
	if cfg.ClickHouse.Database == "" {
		cfg.ClickHouse.Database = "salescope"
	}
	if cfg.ClickHouse.RetentionDays == 0 {
		cfg.ClickHouse.RetentionDays = 90
	}

	return cfg, nil
}

// openMetricStore connects to ClickHouse and ensures the schema exists.
func openMetricStore(cfg *cliConfig) (*storage.ClickHouseStorage, error) {
	store := storage.NewClickHouseStorage(&storage.ClickHouseConfig{
		Addresses:     cfg.ClickHouse.Addresses,
		Database:      cfg.ClickHouse.Database,
		Username:      cfg.ClickHouse.Username,
		Password:      cfg.ClickHouse.Password,
		Compression:   cfg.ClickHouse.Compression,
		RetentionDays: cfg.ClickHouse.RetentionDays,
	})
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("connect to metric store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate metric store: %w", err)
	}
	return store, nil
}
