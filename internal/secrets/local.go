package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStore keeps secrets as single-value files on the local filesystem.
// This is intended for development and testing only.
//
// Each secret is stored as <base_dir>/<name>.secret with 0600 permissions.
type LocalStore struct {
	baseDir string
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewLocalStore creates a new filesystem-backed secret store.
// If baseDir is empty, it defaults to ~/.statusgraph/secrets.
func NewLocalStore(baseDir string, logger *slog.Logger) (*LocalStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".statusgraph", "secrets")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("creating secrets directory: %w", err)
	}

	logger.Info("using local secret store", "path", baseDir)

	return &LocalStore{
		baseDir: baseDir,
		logger:  logger,
		cache:   make(map[string]string),
	}, nil
}

// Get retrieves a secret by name, "" when absent.
func (s *LocalStore) Get(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if cached, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading secret %s: %w", name, err)
	}

	value := strings.TrimSpace(string(data))
	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()
	return value, nil
}

// Set stores a secret with restrictive permissions.
func (s *LocalStore) Set(ctx context.Context, name, value string) error {
	if err := os.WriteFile(s.path(name), []byte(value+"\n"), 0600); err != nil {
		return fmt.Errorf("writing secret %s: %w", name, err)
	}
	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()
	return nil
}

// Close clears the in-memory cache.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.baseDir, name+".secret")
}
