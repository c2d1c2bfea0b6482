package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

const historyColumns = `
	id, entity_id, status, status_message, response_time, uptime_percentage,
	checked_at, deleted_at, created_at, updated_at`

// AppendStatusHistory inserts a new status observation and fills in the
// store-assigned ID and timestamps. Writes are append-only; corrections go
// through UpdateStatusHistory.
func (s *Store) AppendStatusHistory(ctx context.Context, h *types.EntityStatusHistory) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO entity_status_history (entity_id, status, status_message,
			response_time, uptime_percentage, checked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, h.EntityID, h.Status, h.StatusMessage, h.ResponseTime, h.UptimePercentage, h.CheckedAt,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
}

// GetStatusHistory retrieves a live history row by ID. Returns (nil, nil)
// when absent.
func (s *Store) GetStatusHistory(ctx context.Context, id int64) (*types.EntityStatusHistory, error) {
	var h types.EntityStatusHistory
	err := s.pool.QueryRow(ctx, `
		SELECT`+historyColumns+`
		FROM entity_status_history WHERE id = $1 AND is_deleted = FALSE
	`, id).Scan(
		&h.ID, &h.EntityID, &h.Status, &h.StatusMessage, &h.ResponseTime,
		&h.UptimePercentage, &h.CheckedAt, &h.DeletedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetLatestStatus returns the most recent non-deleted status row for an
// entity, or (nil, nil) when no history exists. Rows sharing an identical
// checked_at timestamp resolve deterministically: the highest id wins.
func (s *Store) GetLatestStatus(ctx context.Context, entityID string) (*types.EntityStatusHistory, error) {
	var h types.EntityStatusHistory
	err := s.pool.QueryRow(ctx, `
		SELECT`+historyColumns+`
		FROM entity_status_history
		WHERE entity_id = $1 AND is_deleted = FALSE
		ORDER BY checked_at DESC, id DESC
		LIMIT 1
	`, entityID).Scan(
		&h.ID, &h.EntityID, &h.Status, &h.StatusMessage, &h.ResponseTime,
		&h.UptimePercentage, &h.CheckedAt, &h.DeletedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// HistoryQueryParams filters history listings for one entity.
type HistoryQueryParams struct {
	From   *time.Time
	To     *time.Time
	Status types.EntityStatus // empty = all statuses

	// Limit/Offset paginate when Limit > 0.
	Limit  int
	Offset int
}

// ListStatusHistory returns an entity's live history rows, newest first.
func (s *Store) ListStatusHistory(ctx context.Context, entityID string, params HistoryQueryParams) ([]types.EntityStatusHistory, error) {
	conditions := []string{"entity_id = $1", "is_deleted = FALSE"}
	args := []interface{}{entityID}
	argNum := 2

	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("checked_at >= $%d", argNum))
		args = append(args, *params.From)
		argNum++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("checked_at <= $%d", argNum))
		args = append(args, *params.To)
		argNum++
	}
	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, params.Status)
		argNum++
	}

	query := fmt.Sprintf(`
		SELECT%s
		FROM entity_status_history
		WHERE %s
		ORDER BY checked_at DESC, id DESC
	`, historyColumns, strings.Join(conditions, " AND "))

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
		args = append(args, params.Limit, params.Offset)
	}

	return s.queryHistory(ctx, query, args...)
}

// ListStatusHistoryByDateRange returns live history rows across every live
// entity in a workspace within [from, to], newest first.
func (s *Store) ListStatusHistoryByDateRange(ctx context.Context, workspaceID string, from, to time.Time) ([]types.EntityStatusHistory, error) {
	return s.queryHistory(ctx, `
		SELECT h.id, h.entity_id, h.status, h.status_message, h.response_time,
			h.uptime_percentage, h.checked_at, h.deleted_at, h.created_at, h.updated_at
		FROM entity_status_history h
		JOIN entities e ON e.id = h.entity_id AND e.is_deleted = FALSE
		WHERE e.workspace_id = $1
			AND h.checked_at >= $2 AND h.checked_at <= $3
			AND h.is_deleted = FALSE
		ORDER BY h.checked_at DESC, h.id DESC
	`, workspaceID, from, to)
}

// CountStatusHistory counts an entity's live history rows.
func (s *Store) CountStatusHistory(ctx context.Context, entityID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM entity_status_history
		WHERE entity_id = $1 AND is_deleted = FALSE
	`, entityID).Scan(&count)
	return count, err
}

// UpdateStatusHistory applies a last-write-wins correction to the mutable
// fields of a history row. Returns false when the row is absent or deleted.
func (s *Store) UpdateStatusHistory(ctx context.Context, h *types.EntityStatusHistory) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE entity_status_history SET
			status = $2,
			status_message = $3,
			response_time = $4,
			uptime_percentage = $5,
			checked_at = $6,
			updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, h.ID, h.Status, h.StatusMessage, h.ResponseTime, h.UptimePercentage, h.CheckedAt)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// SoftDeleteStatusHistory marks a history row deleted. Returns false when
// absent or already deleted.
func (s *Store) SoftDeleteStatusHistory(ctx context.Context, id int64) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE entity_status_history
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (s *Store) queryHistory(ctx context.Context, query string, args ...interface{}) ([]types.EntityStatusHistory, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.EntityStatusHistory
	for rows.Next() {
		var h types.EntityStatusHistory
		if err := rows.Scan(
			&h.ID, &h.EntityID, &h.Status, &h.StatusMessage, &h.ResponseTime,
			&h.UptimePercentage, &h.CheckedAt, &h.DeletedAt, &h.CreatedAt, &h.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, h)
	}
	return records, rows.Err()
}
