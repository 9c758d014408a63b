package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
api:
  base_url: http://127.0.0.1:8000
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "dashboard-sync", cfg.Name)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "/ws", cfg.API.StreamPath)
	assert.Equal(t, 3000, cfg.Stream.ReconnectDelayMs)
	assert.Equal(t, 4, cfg.API.ConcurrentRequests)
	assert.Equal(t, "none", cfg.Storage.DBType)
	assert.Equal(t, 100, cfg.TradeFeedSize)
	assert.Equal(t, "xnse", cfg.MarketMIC)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://bot.example.com")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example.com", cfg.API.BaseURL)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing base url", "name: x\n"},
		{"bad scheme", "api:\n  base_url: ftp://host\n"},
		{"bad log level", "log_level: LOUD\napi:\n  base_url: http://h\n"},
		{"negative retries", "api:\n  base_url: http://h\n  retries: -1\n"},
		{"relay port", "api:\n  base_url: http://h\nrelay:\n  enabled: true\n  port: 80\n"},
		{"sqlite without path", "api:\n  base_url: http://h\nstorage:\n  db_type: sqlite\n"},
		{"unknown db", "api:\n  base_url: http://h\nstorage:\n  db_type: mongo\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	cfg.Relay.Enabled = true
	cfg.Relay.Port = 9099

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, cfg.Save(path))

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9099, reloaded.Relay.Port)
	assert.Equal(t, cfg.API.BaseURL, reloaded.API.BaseURL)
}

func TestSave_CarriesEnvOverridesOwnerOnly(t *testing.T) {
	t.Setenv(EnvDBConnectionString, "postgres://sync:secret@db/journal")
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "effective.yaml")
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(written))
	assert.Contains(t, buf.String(), "postgres://sync:secret@db/journal")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DASHBOARD_TEST_KEY=loaded\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("DASHBOARD_TEST_KEY") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "loaded", os.Getenv("DASHBOARD_TEST_KEY"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "nope.env")))
}
