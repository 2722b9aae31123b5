// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers a YAML file and environment variables on top.
// - Validation failures wrap ErrInvalidConfig; load failures wrap ErrLoadConfig.
package config

import (
	"runtime"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, additionally writes logs to a rotating file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory game job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of reconstruction workers. Zero picks runtime.NumCPU().
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many game IDs are remembered to skip resubmissions.
	DedupeSize int `koanf:"dedupe_size"`

	// Store selects the result store backend: memory or sqlite.
	Store string `koanf:"store"`

	// DBDSN is the SQLite DSN used when Store is sqlite.
	DBDSN string `koanf:"db_dsn"`

	// MaxSnapshotRange caps the number of seconds returned by one snapshot query.
	MaxSnapshotRange int `koanf:"max_snapshot_range"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		QueueSize:        1_000,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       50_000,
		Store:            StoreMemory,
		DBDSN:            "rinktime.db",
		MaxSnapshotRange: 1_200,
	}
}
