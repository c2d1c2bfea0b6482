package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

const dependencyColumns = `
	id, entity_id, depends_on_entity_id, description, is_active, is_critical,
	dependency_type, ord, created_at, updated_at`

// CreateDependency inserts a new dependency edge.
// No uniqueness is enforced on the (entity, depends-on) pair: the graph layer
// permits parallel edges and cycles.
func (s *Store) CreateDependency(ctx context.Context, dep *types.EntityDependency) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO entity_dependencies (id, entity_id, depends_on_entity_id, description,
			is_active, is_critical, dependency_type, ord, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NOW(), NOW())
	`, dep.ID, dep.EntityID, dep.DependsOnEntityID, dep.Description,
		dep.IsActive, dep.IsCritical, string(dep.DependencyType), dep.Order)
	return err
}

// GetDependency retrieves a live dependency edge by ID. Returns (nil, nil)
// when absent.
func (s *Store) GetDependency(ctx context.Context, id string) (*types.EntityDependency, error) {
	var dep types.EntityDependency
	var depType *string
	err := s.pool.QueryRow(ctx, `
		SELECT`+dependencyColumns+`
		FROM entity_dependencies WHERE id = $1 AND is_deleted = FALSE
	`, id).Scan(
		&dep.ID, &dep.EntityID, &dep.DependsOnEntityID, &dep.Description,
		&dep.IsActive, &dep.IsCritical, &depType, &dep.Order,
		&dep.CreatedAt, &dep.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if depType != nil {
		dep.DependencyType = types.EntityType(*depType)
	}
	return &dep, nil
}

// UpdateDependency updates the mutable fields of an edge.
// Returns false when the edge does not exist or is deleted.
func (s *Store) UpdateDependency(ctx context.Context, dep *types.EntityDependency) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE entity_dependencies SET
			depends_on_entity_id = $2,
			description = $3,
			is_active = $4,
			is_critical = $5,
			dependency_type = NULLIF($6, ''),
			ord = $7,
			updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, dep.ID, dep.DependsOnEntityID, dep.Description, dep.IsActive,
		dep.IsCritical, string(dep.DependencyType), dep.Order)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// DeleteDependency soft-deletes an edge. Returns false when absent.
func (s *Store) DeleteDependency(ctx context.Context, id string) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE entity_dependencies
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// OutgoingDependencies returns the live edges whose source is entityID,
// ordered by ord ascending (id breaks ties for a stable listing).
func (s *Store) OutgoingDependencies(ctx context.Context, entityID string) ([]types.EntityDependency, error) {
	return s.queryDependencies(ctx, `
		SELECT`+dependencyColumns+`
		FROM entity_dependencies
		WHERE entity_id = $1 AND is_deleted = FALSE
		ORDER BY ord ASC, id ASC
	`, entityID)
}

// IncomingDependencies returns the live edges whose target is entityID,
// ordered by ord ascending.
func (s *Store) IncomingDependencies(ctx context.Context, entityID string) ([]types.EntityDependency, error) {
	return s.queryDependencies(ctx, `
		SELECT`+dependencyColumns+`
		FROM entity_dependencies
		WHERE depends_on_entity_id = $1 AND is_deleted = FALSE
		ORDER BY ord ASC, id ASC
	`, entityID)
}

func (s *Store) queryDependencies(ctx context.Context, query string, args ...interface{}) ([]types.EntityDependency, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []types.EntityDependency
	for rows.Next() {
		var dep types.EntityDependency
		var depType *string
		if err := rows.Scan(
			&dep.ID, &dep.EntityID, &dep.DependsOnEntityID, &dep.Description,
			&dep.IsActive, &dep.IsCritical, &depType, &dep.Order,
			&dep.CreatedAt, &dep.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if depType != nil {
			dep.DependencyType = types.EntityType(*depType)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}
