package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_OverridesKeepDefaultsElsewhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  addr: ":9090"
provider:
  rps: 10
  api_keys: [key-a, key-b]
scheduler:
  run_interval: 30m
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10.0, cfg.Provider.RPS)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.Provider.APIKeys)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.RunInterval)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Scheduler.BatchSize)
	assert.Equal(t, 1.5, cfg.Shift.ThresholdPct)
	assert.Equal(t, 2, cfg.Plans.Free.MaxVehicles)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}
