package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pulse-ops/statusgraph/internal/store"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// AppendStatusRequest contains parameters for recording a status observation.
type AppendStatusRequest struct {
	EntityID         string
	Status           types.EntityStatus
	StatusMessage    string
	ResponseTime     *float64
	UptimePercentage *float64

	// CheckedAt defaults to the current UTC time when zero.
	CheckedAt time.Time
}

// AppendStatus records a status observation for an entity.
//
// Numeric samples are rounded to two decimal places on write. The referenced
// entity must be live; validation failures reject the request before any
// persistence call.
func (s *Service) AppendStatus(ctx context.Context, req AppendStatusRequest) (*types.EntityStatusHistory, error) {
	record := &types.EntityStatusHistory{
		EntityID:         req.EntityID,
		Status:           req.Status,
		StatusMessage:    req.StatusMessage,
		ResponseTime:     roundPtr(req.ResponseTime),
		UptimePercentage: roundPtr(req.UptimePercentage),
		CheckedAt:        req.CheckedAt,
	}
	if record.CheckedAt.IsZero() {
		record.CheckedAt = time.Now().UTC()
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.requireEntity(ctx, req.EntityID); err != nil {
		return nil, err
	}

	if err := s.store.AppendStatusHistory(ctx, record); err != nil {
		return nil, fmt.Errorf("appending status history: %w", err)
	}
	s.logger.Debug("status recorded",
		"entity", record.EntityID, "status", record.Status, "id", record.ID)
	return record, nil
}

// LatestStatus returns the most recent non-deleted observation for an entity,
// or nil when none exists. Callers treat nil as status Unknown; a brand-new
// entity legitimately has no history.
func (s *Service) LatestStatus(ctx context.Context, entityID string) (*types.EntityStatusHistory, error) {
	if err := s.requireEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return s.store.GetLatestStatus(ctx, entityID)
}

// GetStatusHistory returns one history row by id.
func (s *Service) GetStatusHistory(ctx context.Context, id int64) (*types.EntityStatusHistory, error) {
	record, err := s.store.GetStatusHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: status history %d", ErrNotFound, id)
	}
	return record, nil
}

// ListStatusHistory returns an entity's observations, newest first.
func (s *Service) ListStatusHistory(ctx context.Context, entityID string, params store.HistoryQueryParams) ([]types.EntityStatusHistory, error) {
	if err := s.requireEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return s.store.ListStatusHistory(ctx, entityID, params)
}

// ListStatusHistoryRange returns every live observation in a workspace
// recorded within [from, to], newest first.
func (s *Service) ListStatusHistoryRange(ctx context.Context, workspaceID string, from, to time.Time) ([]types.EntityStatusHistory, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: 'to' precedes 'from'", ErrValidation)
	}
	return s.store.ListStatusHistoryByDateRange(ctx, workspaceID, from, to)
}

// CountStatusHistory counts an entity's live observations.
func (s *Service) CountStatusHistory(ctx context.Context, entityID string) (int, error) {
	if err := s.requireEntity(ctx, entityID); err != nil {
		return 0, err
	}
	return s.store.CountStatusHistory(ctx, entityID)
}

// UpdateStatusHistory applies a last-write-wins correction to an observation.
func (s *Service) UpdateStatusHistory(ctx context.Context, record *types.EntityStatusHistory) (*types.EntityStatusHistory, error) {
	record.ResponseTime = roundPtr(record.ResponseTime)
	record.UptimePercentage = roundPtr(record.UptimePercentage)
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	ok, err := s.store.UpdateStatusHistory(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("updating status history: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: status history %d", ErrNotFound, record.ID)
	}
	return s.store.GetStatusHistory(ctx, record.ID)
}

// DeleteStatusHistory soft-deletes an observation.
func (s *Service) DeleteStatusHistory(ctx context.Context, id int64) error {
	ok, err := s.store.SoftDeleteStatusHistory(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting status history: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: status history %d", ErrNotFound, id)
	}
	return nil
}

// =============================================================================
// STATUS SUMMARY
// =============================================================================

// SummarizeStatus aggregates an entity's status history over an optional
// date window. The entity must exist; an empty window yields zeroed
// aggregates, not an error.
func (s *Service) SummarizeStatus(ctx context.Context, entityID string, from, to *time.Time) (*types.StatusSummary, error) {
	if err := s.requireEntity(ctx, entityID); err != nil {
		return nil, err
	}

	records, err := s.store.ListStatusHistory(ctx, entityID, store.HistoryQueryParams{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("loading status history: %w", err)
	}

	summary := computeStatusSummary(records)
	summary.EntityID = entityID
	summary.From = from
	summary.To = to
	return summary, nil
}

// computeStatusSummary folds history rows into a summary.
//
// Rows with a nil response time or uptime are excluded from that average's
// sample rather than counted as zero, but every row counts toward
// TotalChecks, so sum(StatusCounts) == TotalChecks always holds.
func computeStatusSummary(records []types.EntityStatusHistory) *types.StatusSummary {
	summary := &types.StatusSummary{
		StatusCounts: make(map[types.EntityStatus]int),
	}

	var responseSum, uptimeSum float64
	var responseN, uptimeN int
	for _, r := range records {
		summary.StatusCounts[r.Status]++
		summary.TotalChecks++
		if r.ResponseTime != nil {
			responseSum += *r.ResponseTime
			responseN++
		}
		if r.UptimePercentage != nil {
			uptimeSum += *r.UptimePercentage
			uptimeN++
		}
	}
	if responseN > 0 {
		summary.AverageResponseTime = types.Round2(responseSum / float64(responseN))
	}
	if uptimeN > 0 {
		summary.AverageUptime = types.Round2(uptimeSum / float64(uptimeN))
	}
	return summary
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	rounded := types.Round2(*v)
	return &rounded
}
