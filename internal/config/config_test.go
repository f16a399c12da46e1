package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "county_cache.db", cfg.Cache.Path)
	assert.True(t, cfg.County.FCCEnabled)
	assert.True(t, cfg.County.NominatimEnabled)
	assert.Equal(t, 100*time.Millisecond, cfg.County.FCCInterval)
	assert.Equal(t, time.Second, cfg.County.NominatimInterval)
	assert.Equal(t, 10*time.Second, cfg.County.Timeout)
	assert.Equal(t, 200.0, cfg.Match.ThresholdMeters)
	assert.Equal(t, 50.0, cfg.Dedupe.ThresholdMeters)
	assert.Equal(t, "Oct 1, 2024 - Sep 30, 2025", cfg.Report.DateRange)
	assert.Equal(t, int64(50), cfg.Storage.MaxUploadMB)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
cache:
  driver: redis
county:
  nominatim_interval: 2s
match:
  threshold_meters: 150
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(yaml), 0o644))
	t.Setenv("RECONCILER_MATCH_THRESHOLD_METERS", "300")
	t.Setenv("RECONCILER_JOBS_WORKERS", "4")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, 2*time.Second, cfg.County.NominatimInterval)
	assert.Equal(t, 300.0, cfg.Match.ThresholdMeters, "environment wins over the file")
	assert.Equal(t, 4, cfg.Jobs.Workers)
}

func TestLoadConfig_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RECONCILER_CACHE_DRIVER=memory\n"), 0o644))
	t.Setenv("RECONCILER_CACHE_DRIVER", "")
	os.Unsetenv("RECONCILER_CACHE_DRIVER")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Driver)
}
