// Package secrets provides storage for sensitive configuration values such
// as database credentials and Redis URLs.
//
// The primary implementation uses 1Password Connect for production
// environments, with a local file-based fallback for development. Values are
// looked up by name; the server resolves connection strings through the
// store when they are not given directly via flags or environment.
package secrets

import "context"

// Well-known secret names resolved by the server at startup.
const (
	SecretDatabaseURL = "statusgraph-database-url"
	SecretRedisURL    = "statusgraph-redis-url"
)

// Store provides named secret storage and retrieval.
type Store interface {
	// Get retrieves a secret value by name. Returns "" with a nil error
	// when the secret doesn't exist.
	Get(ctx context.Context, name string) (string, error)

	// Set stores or replaces a secret value.
	Set(ctx context.Context, name, value string) error

	// Close releases any resources held by the store.
	Close() error
}
