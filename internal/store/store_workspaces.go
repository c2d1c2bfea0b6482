package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// CreateWorkspace inserts a new workspace.
func (s *Store) CreateWorkspace(ctx context.Context, ws *types.Workspace) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workspaces (id, name, created_at) VALUES ($1, $2, NOW())
	`, ws.ID, ws.Name)
	return err
}

// GetWorkspace retrieves a workspace by ID. Returns (nil, nil) when absent.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*types.Workspace, error) {
	var ws types.Workspace
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, api_key_created_at, created_at FROM workspaces WHERE id = $1
	`, id).Scan(&ws.ID, &ws.Name, &ws.APIKeyCreatedAt, &ws.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// SetWorkspaceAPIKey stores a hashed ingest API key for a workspace.
// The key should be hashed with bcrypt before calling this method.
func (s *Store) SetWorkspaceAPIKey(ctx context.Context, workspaceID, keyHash string) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE workspaces SET api_key_hash = $2, api_key_created_at = NOW()
		WHERE id = $1
	`, workspaceID, keyHash)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// GetWorkspaceAPIKeyHash retrieves the hashed ingest key for a workspace.
// Returns empty string if no key is set.
func (s *Store) GetWorkspaceAPIKeyHash(ctx context.Context, workspaceID string) (string, error) {
	var keyHash *string
	err := s.pool.QueryRow(ctx, `
		SELECT api_key_hash FROM workspaces WHERE id = $1
	`, workspaceID).Scan(&keyHash)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if keyHash == nil {
		return "", nil
	}
	return *keyHash, nil
}
