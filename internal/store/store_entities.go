package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// entityColumns is the SELECT list shared by all entity reads.
const entityColumns = `
	id, workspace_id, name, description, entity_type, url, version, owner,
	location, grp, metadata, is_active, is_critical, deleted_at, created_at, updated_at`

// CreateEntity inserts a new entity.
func (s *Store) CreateEntity(ctx context.Context, entity *types.Entity) error {
	metadataJSON, _ := json.Marshal(entity.Metadata)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO entities (id, workspace_id, name, description, entity_type, url, version,
			owner, location, grp, metadata, is_active, is_critical, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`,
		entity.ID, entity.WorkspaceID, entity.Name, entity.Description, entity.EntityType,
		entity.URL, entity.Version, entity.Owner, entity.Location, entity.Group,
		metadataJSON, entity.IsActive, entity.IsCritical,
	)
	return err
}

// GetEntity retrieves a live (non-deleted) entity by ID, with its latest
// non-deleted status row attached. Returns (nil, nil) when absent.
func (s *Store) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	var entity types.Entity
	var metadataJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT`+entityColumns+`
		FROM entities WHERE id = $1 AND is_deleted = FALSE
	`, id).Scan(
		&entity.ID, &entity.WorkspaceID, &entity.Name, &entity.Description, &entity.EntityType,
		&entity.URL, &entity.Version, &entity.Owner, &entity.Location, &entity.Group,
		&metadataJSON, &entity.IsActive, &entity.IsCritical,
		&entity.DeletedAt, &entity.CreatedAt, &entity.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	json.Unmarshal(metadataJSON, &entity.Metadata)

	latest, err := s.GetLatestStatus(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	entity.LatestStatus = latest
	return &entity, nil
}

// EntityExists reports whether a live entity with the given ID exists.
func (s *Store) EntityExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM entities WHERE id = $1 AND is_deleted = FALSE)
	`, id).Scan(&exists)
	return exists, err
}

// EntityListParams contains filters for entity listing within a workspace.
type EntityListParams struct {
	EntityType types.EntityType // empty = all types
	Critical   *bool
	Active     *bool
	Search     string // matches name, description, owner, location
}

// ListEntities returns a workspace's live entities ordered by name, each with
// its latest non-deleted status row attached via a lateral join.
func (s *Store) ListEntities(ctx context.Context, workspaceID string, params EntityListParams) ([]types.Entity, error) {
	conditions := []string{"e.workspace_id = $1", "e.is_deleted = FALSE"}
	args := []interface{}{workspaceID}
	argNum := 2

	if params.EntityType != "" {
		conditions = append(conditions, fmt.Sprintf("e.entity_type = $%d", argNum))
		args = append(args, params.EntityType)
		argNum++
	}
	if params.Critical != nil {
		conditions = append(conditions, fmt.Sprintf("e.is_critical = $%d", argNum))
		args = append(args, *params.Critical)
		argNum++
	}
	if params.Active != nil {
		conditions = append(conditions, fmt.Sprintf("e.is_active = $%d", argNum))
		args = append(args, *params.Active)
		argNum++
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(e.name ILIKE $%d OR e.description ILIKE $%d OR e.owner ILIKE $%d OR e.location ILIKE $%d)",
			argNum, argNum, argNum, argNum))
		args = append(args, "%"+params.Search+"%")
		argNum++
	}

	query := fmt.Sprintf(`
		SELECT
			e.id, e.workspace_id, e.name, e.description, e.entity_type, e.url, e.version,
			e.owner, e.location, e.grp, e.metadata, e.is_active, e.is_critical,
			e.deleted_at, e.created_at, e.updated_at,
			h.id, h.status, h.status_message, h.response_time, h.uptime_percentage, h.checked_at
		FROM entities e
		LEFT JOIN LATERAL (
			SELECT id, status, status_message, response_time, uptime_percentage, checked_at
			FROM entity_status_history
			WHERE entity_id = e.id AND is_deleted = FALSE
			ORDER BY checked_at DESC, id DESC
			LIMIT 1
		) h ON TRUE
		WHERE %s
		ORDER BY e.name
	`, strings.Join(conditions, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []types.Entity
	for rows.Next() {
		var entity types.Entity
		var metadataJSON []byte
		var histID *int64
		var histStatus, histMessage *string
		var histResponseTime, histUptime *float64
		var histCheckedAt *time.Time
		if err := rows.Scan(
			&entity.ID, &entity.WorkspaceID, &entity.Name, &entity.Description, &entity.EntityType,
			&entity.URL, &entity.Version, &entity.Owner, &entity.Location, &entity.Group,
			&metadataJSON, &entity.IsActive, &entity.IsCritical,
			&entity.DeletedAt, &entity.CreatedAt, &entity.UpdatedAt,
			&histID, &histStatus, &histMessage, &histResponseTime, &histUptime, &histCheckedAt,
		); err != nil {
			return nil, err
		}
		json.Unmarshal(metadataJSON, &entity.Metadata)
		if histID != nil {
			entity.LatestStatus = &types.EntityStatusHistory{
				ID:               *histID,
				EntityID:         entity.ID,
				Status:           types.EntityStatus(*histStatus),
				ResponseTime:     histResponseTime,
				UptimePercentage: histUptime,
			}
			if histMessage != nil {
				entity.LatestStatus.StatusMessage = *histMessage
			}
			if histCheckedAt != nil {
				entity.LatestStatus.CheckedAt = *histCheckedAt
			}
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// UpdateEntity updates the mutable fields of a live entity.
// Returns false when the entity does not exist or is deleted.
func (s *Store) UpdateEntity(ctx context.Context, entity *types.Entity) (bool, error) {
	metadataJSON, _ := json.Marshal(entity.Metadata)
	result, err := s.pool.Exec(ctx, `
		UPDATE entities SET
			name = $2,
			description = $3,
			entity_type = $4,
			url = $5,
			version = $6,
			owner = $7,
			location = $8,
			grp = $9,
			metadata = $10,
			is_active = $11,
			is_critical = $12,
			updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, entity.ID, entity.Name, entity.Description, entity.EntityType, entity.URL,
		entity.Version, entity.Owner, entity.Location, entity.Group, metadataJSON,
		entity.IsActive, entity.IsCritical)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// SoftDeleteEntity marks an entity deleted. History rows keep referencing it.
func (s *Store) SoftDeleteEntity(ctx context.Context, id string) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE entities
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// ListEntitiesDueForCheck returns active entities with a URL whose latest
// status check is older than the threshold (or that have never been checked),
// ordered stalest first. Used by the background health checker.
func (s *Store) ListEntitiesDueForCheck(ctx context.Context, olderThan time.Time) ([]types.Entity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.workspace_id, e.name, e.entity_type, e.url
		FROM entities e
		LEFT JOIN LATERAL (
			SELECT checked_at
			FROM entity_status_history
			WHERE entity_id = e.id AND is_deleted = FALSE
			ORDER BY checked_at DESC, id DESC
			LIMIT 1
		) h ON TRUE
		WHERE e.is_deleted = FALSE AND e.is_active = TRUE AND e.url <> ''
		  AND (h.checked_at IS NULL OR h.checked_at < $1)
		ORDER BY h.checked_at ASC NULLS FIRST
	`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []types.Entity
	for rows.Next() {
		var entity types.Entity
		if err := rows.Scan(&entity.ID, &entity.WorkspaceID, &entity.Name, &entity.EntityType, &entity.URL); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}
