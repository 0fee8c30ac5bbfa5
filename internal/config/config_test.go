package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 10, cfg.MaxDepth)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.IncludeTests)
	assert.False(t, cfg.IncludeVendor)
	assert.Equal(t, "index.json", filepath.Base(cfg.StorePath))
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
store_path = "/tmp/codexref/index.json"
workers = 3
include_vendor = true
cache_ttl = "30s"
log_level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/codexref/index.json", cfg.StorePath)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.IncludeVendor)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	// Keys absent from the file keep their defaults
	assert.Equal(t, 50, cfg.DefaultLimit)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("wokers = 3\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wokers")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CODEXREF_STORE_PATH", "/data/index.json")
	t.Setenv("CODEXREF_MAX_DEPTH", "4")
	t.Setenv("CODEXREF_INCLUDE_TESTS", "false")
	t.Setenv("CODEXREF_WATCH_DEBOUNCE", "1s")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "/data/index.json", cfg.StorePath)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.False(t, cfg.IncludeTests)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("CODEXREF_WORKERS", "many")
	cfg := Default()
	err := cfg.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CODEXREF_WORKERS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"limit too large", func(c *Config) { c.DefaultLimit = 5000 }, "default_limit"},
		{"depth", func(c *Config) { c.MaxDepth = -1 }, "max_depth"},
		{"ttl", func(c *Config) { c.CacheTTL = 0 }, "cache_ttl"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Workers = 7
	cfg.WatchDebounce = 2 * time.Second

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	loaded := Default()
	require.NoError(t, LoadTOML(loaded, path))
	assert.Equal(t, 7, loaded.Workers)
	assert.Equal(t, 2*time.Second, loaded.WatchDebounce)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y"), ExpandPath("~/x/y"))
	assert.Equal(t, "/abs", ExpandPath("/abs"))
}
