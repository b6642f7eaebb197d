// Package config loads and validates application configuration from TOML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Session  SessionConfig  `mapstructure:"session"`
	AutoSave AutoSaveConfig `mapstructure:"autosave"`
	DragDrop DragDropConfig `mapstructure:"dragdrop"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// StorageConfig controls the durable key-value store.
type StorageConfig struct {
	// Path is the SQLite database file. Empty selects the default under
	// the user data directory.
	Path string `mapstructure:"path"`
	// QuotaBytes caps total stored bytes; zero means unlimited.
	QuotaBytes int64 `mapstructure:"quota_bytes"`
}

// SessionConfig controls snapshotting.
type SessionConfig struct {
	// BackupRingSize is how many prior snapshots to keep for recovery.
	BackupRingSize int `mapstructure:"backup_ring_size"`
	// SnapshotDebounceMs is the delay between a state change and the
	// snapshot write.
	SnapshotDebounceMs int `mapstructure:"snapshot_debounce_ms"`
}

// AutoSaveConfig controls per-tab auto-save.
type AutoSaveConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// DelayMs is the debounce window after the last edit. Values under
	// 1000 are clamped up.
	DelayMs int `mapstructure:"delay_ms"`
}

// DragDropConfig controls drop intent classification.
type DragDropConfig struct {
	// EdgeThresholdPx is the band along panel edges that turns a drop
	// into a split.
	EdgeThresholdPx float64 `mapstructure:"edge_threshold_px"`
}

const (
	defaultBackupRingSize     = 3
	defaultSnapshotDebounceMs = 5000
	defaultAutoSaveDelayMs    = 2000
	minAutoSaveDelayMs        = 1000
	defaultEdgeThresholdPx    = 50
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Storage: StorageConfig{QuotaBytes: 0},
		Session: SessionConfig{
			BackupRingSize:     defaultBackupRingSize,
			SnapshotDebounceMs: defaultSnapshotDebounceMs,
		},
		AutoSave: AutoSaveConfig{Enabled: true, DelayMs: defaultAutoSaveDelayMs},
		DragDrop: DragDropConfig{EdgeThresholdPx: defaultEdgeThresholdPx},
	}
}

// normalize clamps out-of-range values to safe ones rather than failing.
func normalize(cfg *Config) {
	if cfg.Session.BackupRingSize <= 0 || cfg.Session.BackupRingSize > defaultBackupRingSize {
		cfg.Session.BackupRingSize = defaultBackupRingSize
	}
	if cfg.Session.SnapshotDebounceMs <= 0 {
		cfg.Session.SnapshotDebounceMs = defaultSnapshotDebounceMs
	}
	if cfg.AutoSave.DelayMs <= 0 {
		cfg.AutoSave.DelayMs = defaultAutoSaveDelayMs
	} else if cfg.AutoSave.DelayMs < minAutoSaveDelayMs {
		cfg.AutoSave.DelayMs = minAutoSaveDelayMs
	}
	if cfg.DragDrop.EdgeThresholdPx <= 0 {
		cfg.DragDrop.EdgeThresholdPx = defaultEdgeThresholdPx
	}
}

func validate(cfg *Config) error {
	switch cfg.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", cfg.Logging.Format)
	}
	if cfg.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}
	return nil
}

// GetConfigDir returns the directory config files are read from.
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tessera"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tessera"), nil
}

// GetDataDir returns the directory durable state lives in.
func GetDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tessera"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tessera"), nil
}

// StoragePath resolves the database file, falling back to the default under
// the data directory.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "tessera.db"), nil
}
