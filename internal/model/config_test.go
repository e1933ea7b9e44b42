package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3001/api", cfg.API.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceWindow())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Zero(t, cfg.RefreshInterval())
	assert.Equal(t, 4*time.Second, cfg.ToastDuration())
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
api:
  base_url: https://tasks.example.com/api/
search:
  debounce_ms: 250
tasks:
  page_size: 20
display:
  refresh_interval_sec: 60
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://tasks.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceWindow())
	assert.Equal(t, 20, cfg.Tasks.PageSize)
	assert.Equal(t, time.Minute, cfg.RefreshInterval())
	assert.Equal(t, 30, cfg.API.TimeoutSec)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("TASKMASTER_API_BASE_URL", "http://api.internal:8080")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://api.internal:8080", cfg.API.BaseURL)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.API.BaseURL = "https://saved.example.com"
	cfg.Search.DebounceMS = 300

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com", loaded.API.BaseURL)
	assert.Equal(t, 300, loaded.Search.DebounceMS)
}
