package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "usi-cli/1.0", cfg.Dataset.UserAgent)
	assert.Equal(t, 30, cfg.Dataset.TimeoutSecs)
	assert.Equal(t, 3, cfg.Dataset.MaxRetries)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "usi.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "usi-map", cfg.Server.Slots["map"])
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Contains(t, cfg.Calculator.Categories, "Public Transport")
	assert.Len(t, cfg.Calculator.Categories, 7)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
dataset:
  source: https://example.com/cities.geojson
  timeout_secs: 10
store:
  driver: postgres
  database_url: postgres://localhost/usi
server:
  port: 9090
  slots:
    map: main-map
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/cities.geojson", cfg.Dataset.Source)
	assert.Equal(t, 10, cfg.Dataset.TimeoutSecs)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/usi", cfg.Store.DatabaseURL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "main-map", cfg.Server.Slots["map"])
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for untouched keys.
	assert.Equal(t, "usi-cli/1.0", cfg.Dataset.UserAgent)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	t.Setenv("USI_STORE_DRIVER", "postgres")
	t.Setenv("USI_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{name: "json info", cfg: LogConfig{Level: "info", Format: "json"}},
		{name: "console debug", cfg: LogConfig{Level: "debug", Format: "console"}},
		{name: "bad level", cfg: LogConfig{Level: "shouty", Format: "json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
