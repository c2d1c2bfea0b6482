// Package testutil provides testing utilities and fixtures for the server.
//
// This package contains:
//   - Test helper functions (loggers)
//   - Fixture factories for domain types (entities, edges, history rows)
//
// # Usage
//
// Fixtures use functional options for customization:
//
//	entity := testutil.FixtureEntity()
//	entity := testutil.FixtureEntity(func(e *types.Entity) {
//		e.Name = "billing-db"
//		e.EntityType = types.EntityTypeDatabase
//	})
package testutil

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// NewTestLogger returns a logger that discards all output.
// Use for tests where logging output is not needed.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// ENTITY FIXTURES
// =============================================================================

// FixtureEntity creates a test entity with sensible defaults.
// Use overrides to customize specific fields.
func FixtureEntity(overrides ...func(*types.Entity)) *types.Entity {
	entity := &types.Entity{
		ID:          uuid.New().String(),
		WorkspaceID: "test-workspace",
		Name:        "test-entity-" + uuid.New().String()[:8],
		EntityType:  types.EntityTypeServer,
		Group:       "Default",
		Metadata:    map[string]string{"env": "test"},
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	for _, override := range overrides {
		override(entity)
	}

	return entity
}

// FixtureEntityCritical creates a critical entity.
func FixtureEntityCritical(overrides ...func(*types.Entity)) *types.Entity {
	return FixtureEntity(append([]func(*types.Entity){
		func(e *types.Entity) {
			e.IsCritical = true
		},
	}, overrides...)...)
}

// =============================================================================
// DEPENDENCY FIXTURES
// =============================================================================

// FixtureDependency creates a directed edge between two entities.
func FixtureDependency(entityID, dependsOnID string, overrides ...func(*types.EntityDependency)) *types.EntityDependency {
	dep := &types.EntityDependency{
		ID:                uuid.New().String(),
		EntityID:          entityID,
		DependsOnEntityID: dependsOnID,
		IsActive:          true,
		Order:             0,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}

	for _, override := range overrides {
		override(dep)
	}

	return dep
}

// =============================================================================
// STATUS HISTORY FIXTURES
// =============================================================================

// FixtureStatusHistory creates an Online observation for an entity.
func FixtureStatusHistory(entityID string, overrides ...func(*types.EntityStatusHistory)) *types.EntityStatusHistory {
	record := &types.EntityStatusHistory{
		EntityID:     entityID,
		Status:       types.StatusOnline,
		ResponseTime: Ptr(42.5),
		CheckedAt:    time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	for _, override := range overrides {
		override(record)
	}

	return record
}

// FixtureStatusHistoryOffline creates an Offline observation with no timing.
func FixtureStatusHistoryOffline(entityID string, overrides ...func(*types.EntityStatusHistory)) *types.EntityStatusHistory {
	return FixtureStatusHistory(entityID, append([]func(*types.EntityStatusHistory){
		func(h *types.EntityStatusHistory) {
			h.Status = types.StatusOffline
			h.ResponseTime = nil
			h.StatusMessage = "request timeout"
		},
	}, overrides...)...)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Ptr returns a pointer to the given value.
// Useful for setting optional fields in fixtures.
func Ptr[T any](v T) *T {
	return &v
}

// TimeAgo returns a time in the past by the given duration.
func TimeAgo(d time.Duration) time.Time {
	return time.Now().UTC().Add(-d)
}

// TimeAgoPtr returns a pointer to a time in the past.
func TimeAgoPtr(d time.Duration) *time.Time {
	t := time.Now().UTC().Add(-d)
	return &t
}
