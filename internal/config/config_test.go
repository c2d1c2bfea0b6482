package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Tree.MaxDepth)
	assert.Equal(t, 15*time.Minute, cfg.Checker.Interval)
	assert.False(t, cfg.Checker.Enabled)
	assert.False(t, cfg.Auth.EnforceIngestKeys)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  debug: true

database:
  url: postgres://db:5432/statusgraph

cache:
  redis_url: redis://localhost:6379/1

checker:
  enabled: true
  interval: 5m
  rate_per_second: 2

tree:
  max_depth: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "postgres://db:5432/statusgraph", cfg.Database.URL)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Cache.RedisURL)
	assert.True(t, cfg.Checker.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Checker.Interval)
	assert.Equal(t, 3, cfg.Tree.MaxDepth)

	// Unset fields keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Checker.RequestTimeout)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("STATUSGRAPH_PORT", "7070")
	t.Setenv("STATUSGRAPH_DATABASE_URL", "postgres://env:5432/sg")
	t.Setenv("STATUSGRAPH_CHECKER_ENABLED", "true")
	t.Setenv("STATUSGRAPH_CHECKER_INTERVAL", "30m")
	t.Setenv("STATUSGRAPH_TREE_MAX_DEPTH", "7")
	t.Setenv("STATUSGRAPH_ENFORCE_INGEST_KEYS", "true")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://env:5432/sg", cfg.Database.URL)
	assert.True(t, cfg.Checker.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Checker.Interval)
	assert.Equal(t, 7, cfg.Tree.MaxDepth)
	assert.True(t, cfg.Auth.EnforceIngestKeys)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"missing database", func(c *Config) { c.Database.URL = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero depth", func(c *Config) { c.Tree.MaxDepth = 0 }, true},
		{"checker enabled no interval", func(c *Config) {
			c.Checker.Enabled = true
			c.Checker.Interval = 0
		}, true},
		{"checker enabled no rate", func(c *Config) {
			c.Checker.Enabled = true
			c.Checker.RatePerSecond = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
