// Package config handles server configuration loading and validation.
//
// # Configuration Sources
//
// Configuration is loaded from (in order of precedence):
// 1. Command-line flags
// 2. Environment variables (STATUSGRAPH_*)
// 3. Config file (YAML)
// 4. Defaults
//
// # Example Config File
//
//	server:
//	  port: 8080
//
//	database:
//	  url: postgres://localhost:5432/statusgraph?sslmode=disable
//
//	cache:
//	  redis_url: redis://localhost:6379/0
//
//	checker:
//	  enabled: true
//	  interval: 15m
//	  request_timeout: 10s
//	  rate_per_second: 5
//
//	tree:
//	  max_depth: 5
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Checker  CheckerConfig  `yaml:"checker"`
	Tree     TreeConfig     `yaml:"tree"`
	Auth     AuthConfig     `yaml:"auth"`
	Secrets  SecretsConfig  `yaml:"secrets"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Port  int  `yaml:"port"`
	Debug bool `yaml:"debug,omitempty"`
}

// DatabaseConfig defines the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig defines the optional Redis response cache.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"` // empty disables caching
}

// CheckerConfig defines the background health checker.
type CheckerConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval is both the sweep period and the staleness threshold: an
	// active entity with a URL is pinged when its latest check is older.
	Interval time.Duration `yaml:"interval"`

	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RatePerSecond caps outbound checks across all entities.
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// TreeConfig defines dependency tree traversal limits.
type TreeConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// AuthConfig defines ingest authentication behavior.
type AuthConfig struct {
	// EnforceIngestKeys rejects unauthenticated ingest requests. When false
	// (grace period), failures are logged but requests pass through.
	EnforceIngestKeys bool `yaml:"enforce_ingest_keys"`
}

// SecretsConfig selects the secrets backend.
type SecretsConfig struct {
	// Backend is "local", "1password", or "auto" (default).
	Backend string `yaml:"backend,omitempty"`

	// LocalDir is the directory for the local backend.
	LocalDir string `yaml:"local_dir,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			URL: "postgres://localhost:5432/statusgraph?sslmode=disable",
		},
		Checker: CheckerConfig{
			Enabled:        false,
			Interval:       15 * time.Minute,
			RequestTimeout: 10 * time.Second,
			RatePerSecond:  5,
		},
		Tree: TreeConfig{
			MaxDepth: 5,
		},
		Secrets: SecretsConfig{
			Backend: "auto",
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides.
// Environment variables use STATUSGRAPH_ prefix:
// - STATUSGRAPH_PORT
// - STATUSGRAPH_DATABASE_URL
// - STATUSGRAPH_REDIS_URL
// - STATUSGRAPH_CHECKER_ENABLED
// - STATUSGRAPH_CHECKER_INTERVAL
// - STATUSGRAPH_TREE_MAX_DEPTH
// - STATUSGRAPH_ENFORCE_INGEST_KEYS
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("STATUSGRAPH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("STATUSGRAPH_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("STATUSGRAPH_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("STATUSGRAPH_CHECKER_ENABLED"); v != "" {
		c.Checker.Enabled = v == "true"
	}
	if v := os.Getenv("STATUSGRAPH_CHECKER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Checker.Interval = d
		}
	}
	if v := os.Getenv("STATUSGRAPH_TREE_MAX_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil {
			c.Tree.MaxDepth = depth
		}
	}
	if v := os.Getenv("STATUSGRAPH_ENFORCE_INGEST_KEYS"); v != "" {
		c.Auth.EnforceIngestKeys = v == "true"
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Tree.MaxDepth < 1 {
		return fmt.Errorf("tree.max_depth must be at least 1")
	}
	if c.Checker.Enabled {
		if c.Checker.Interval <= 0 {
			return fmt.Errorf("checker.interval must be positive")
		}
		if c.Checker.RatePerSecond <= 0 {
			return fmt.Errorf("checker.rate_per_second must be positive")
		}
	}
	return nil
}
