// Package service contains the business logic for the status graph server.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pulse-ops/statusgraph/internal/deptree"
	"github.com/pulse-ops/statusgraph/internal/store"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// ErrNotFound marks failures where a referenced entity, edge, or history row
// does not resolve to a live record. Terminal for the caller, never retried.
var ErrNotFound = errors.New("not found")

// ErrValidation marks malformed input, rejected before any persistence call.
var ErrValidation = errors.New("validation failed")

// Service provides business logic operations.
type Service struct {
	store  *store.Store
	logger *slog.Logger
	tree   *deptree.Builder
}

// NewService creates a new service with the default tree depth cap.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
		tree:   deptree.NewBuilder(st),
	}
}

// SetMaxTreeDepth overrides the dependency tree depth cap.
func (s *Service) SetMaxTreeDepth(depth int) {
	s.tree = deptree.NewBuilderWithDepth(s.store, depth)
}

// Store returns the underlying store for direct access (used by middleware).
func (s *Service) Store() *store.Store {
	return s.store
}

// =============================================================================
// ENTITY OPERATIONS
// =============================================================================

// CreateEntityRequest contains parameters for entity creation.
type CreateEntityRequest struct {
	WorkspaceID string
	Name        string
	Description string
	EntityType  types.EntityType
	URL         string
	Version     string
	Owner       string
	Location    string
	Group       string
	Metadata    map[string]string
	IsActive    bool
	IsCritical  bool
}

// CreateEntity creates a new entity in a workspace.
func (s *Service) CreateEntity(ctx context.Context, req CreateEntityRequest) (*types.Entity, error) {
	entity := &types.Entity{
		ID:          uuid.New().String(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Description: req.Description,
		EntityType:  req.EntityType,
		URL:         req.URL,
		Version:     req.Version,
		Owner:       req.Owner,
		Location:    req.Location,
		Group:       req.Group,
		Metadata:    req.Metadata,
		IsActive:    req.IsActive,
		IsCritical:  req.IsCritical,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if entity.Group == "" {
		entity.Group = "Default"
	}
	if err := entity.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.store.CreateEntity(ctx, entity); err != nil {
		return nil, fmt.Errorf("creating entity: %w", err)
	}
	s.logger.Info("entity created", "id", entity.ID, "name", entity.Name, "workspace", entity.WorkspaceID)
	return entity, nil
}

// GetEntity returns a live entity with its latest status attached.
func (s *Service) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}
	return entity, nil
}

// ListEntities returns a workspace's entities, each with its latest status.
func (s *Service) ListEntities(ctx context.Context, workspaceID string, params store.EntityListParams) ([]types.Entity, error) {
	return s.store.ListEntities(ctx, workspaceID, params)
}

// UpdateEntity updates the mutable fields of an entity.
func (s *Service) UpdateEntity(ctx context.Context, entity *types.Entity) (*types.Entity, error) {
	if err := entity.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	ok, err := s.store.UpdateEntity(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("updating entity: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, entity.ID)
	}
	return s.GetEntity(ctx, entity.ID)
}

// DeleteEntity soft-deletes an entity. History rows are retained.
func (s *Service) DeleteEntity(ctx context.Context, id string) error {
	ok, err := s.store.SoftDeleteEntity(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}
	s.logger.Info("entity deleted", "id", id)
	return nil
}

// =============================================================================
// DEPENDENCY TREE
// =============================================================================

// BuildDependencyTree assembles the bounded-depth dependency/dependent tree
// for an entity. Soft-deleted entities are not found.
func (s *Service) BuildDependencyTree(ctx context.Context, entityID string) (*types.DependencyTree, error) {
	tree, err := s.tree.Build(ctx, entityID)
	if err != nil {
		if errors.Is(err, deptree.ErrEntityNotFound) {
			return nil, fmt.Errorf("%w: entity %s", ErrNotFound, entityID)
		}
		return nil, fmt.Errorf("building dependency tree: %w", err)
	}
	return tree, nil
}
