package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClampsOutOfRangeValues(t *testing.T) {
	cfg := &Config{
		Session:  SessionConfig{BackupRingSize: 9, SnapshotDebounceMs: -1},
		AutoSave: AutoSaveConfig{DelayMs: 200},
		DragDrop: DragDropConfig{EdgeThresholdPx: -3},
	}

	normalize(cfg)

	assert.Equal(t, defaultBackupRingSize, cfg.Session.BackupRingSize)
	assert.Equal(t, defaultSnapshotDebounceMs, cfg.Session.SnapshotDebounceMs)
	assert.Equal(t, minAutoSaveDelayMs, cfg.AutoSave.DelayMs)
	assert.Equal(t, float64(defaultEdgeThresholdPx), cfg.DragDrop.EdgeThresholdPx)
}

func TestNormalizeKeepsValidValues(t *testing.T) {
	cfg := &Config{
		Session:  SessionConfig{BackupRingSize: 2, SnapshotDebounceMs: 10000},
		AutoSave: AutoSaveConfig{DelayMs: 5000},
		DragDrop: DragDropConfig{EdgeThresholdPx: 80},
	}

	normalize(cfg)

	assert.Equal(t, 2, cfg.Session.BackupRingSize)
	assert.Equal(t, 10000, cfg.Session.SnapshotDebounceMs)
	assert.Equal(t, 5000, cfg.AutoSave.DelayMs)
	assert.Equal(t, 80.0, cfg.DragDrop.EdgeThresholdPx)
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"

	assert.Error(t, validate(cfg))
}

func TestValidateRejectsNegativeQuota(t *testing.T) {
	cfg := Default()
	cfg.Storage.QuotaBytes = -1

	assert.Error(t, validate(cfg))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	normalize(cfg)
	require.NoError(t, validate(cfg))
}

func TestManagerLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("TESSERA_LOG_LEVEL", "debug")
	t.Setenv("TESSERA_AUTOSAVE_DELAY_MS", "1500")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	mgr, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	cfg := mgr.Get()
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1500, cfg.AutoSave.DelayMs)
}

func TestManagerGetBeforeLoadReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	mgr, err := NewManager()
	require.NoError(t, err)

	cfg := mgr.Get()
	assert.Equal(t, defaultAutoSaveDelayMs, cfg.AutoSave.DelayMs)
}
