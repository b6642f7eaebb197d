package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Manager handles configuration loading.
type Manager struct {
	config *Config
	viper  *viper.Viper
	mu     sync.RWMutex
}

// NewManager creates a configuration manager wired for TOML files and
// TESSERA_-prefixed environment variables.
func NewManager() (*Manager, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("determine config directory: %w", err)
	}
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("TESSERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("logging.level", "TESSERA_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("bind TESSERA_LOG_LEVEL: %w", err)
	}
	if err := v.BindEnv("logging.format", "TESSERA_LOG_FORMAT"); err != nil {
		return nil, fmt.Errorf("bind TESSERA_LOG_FORMAT: %w", err)
	}
	if err := v.BindEnv("storage.path", "TESSERA_STORAGE_PATH"); err != nil {
		return nil, fmt.Errorf("bind TESSERA_STORAGE_PATH: %w", err)
	}

	return &Manager{viper: v}, nil
}

// Load reads the config file and environment, fills defaults and validates.
// A missing config file is not an error; defaults apply.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Default()
	if err := m.viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	normalize(cfg)
	if err := validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = cfg
	return nil
}

// Get returns the loaded configuration, or defaults when Load has not run.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return Default()
	}
	return m.config
}

func (m *Manager) setDefaults() {
	def := Default()
	m.viper.SetDefault("logging.level", def.Logging.Level)
	m.viper.SetDefault("logging.format", def.Logging.Format)
	m.viper.SetDefault("storage.path", def.Storage.Path)
	m.viper.SetDefault("storage.quota_bytes", def.Storage.QuotaBytes)
	m.viper.SetDefault("session.backup_ring_size", def.Session.BackupRingSize)
	m.viper.SetDefault("session.snapshot_debounce_ms", def.Session.SnapshotDebounceMs)
	m.viper.SetDefault("autosave.enabled", def.AutoSave.Enabled)
	m.viper.SetDefault("autosave.delay_ms", def.AutoSave.DelayMs)
	m.viper.SetDefault("dragdrop.edge_threshold_px", def.DragDrop.EdgeThresholdPx)
}
