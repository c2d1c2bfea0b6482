package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// CreateDependencyRequest contains parameters for edge creation.
type CreateDependencyRequest struct {
	EntityID          string
	DependsOnEntityID string
	Description       string
	IsActive          bool
	IsCritical        bool
	DependencyType    types.EntityType
	Order             int
}

// CreateDependency creates a directed edge between two live entities.
// Both endpoints must exist; the resulting graph may contain cycles and
// parallel edges, both of which the tree builder tolerates.
func (s *Service) CreateDependency(ctx context.Context, req CreateDependencyRequest) (*types.EntityDependency, error) {
	dep := &types.EntityDependency{
		ID:                uuid.New().String(),
		EntityID:          req.EntityID,
		DependsOnEntityID: req.DependsOnEntityID,
		Description:       req.Description,
		IsActive:          req.IsActive,
		IsCritical:        req.IsCritical,
		DependencyType:    req.DependencyType,
		Order:             req.Order,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	if err := dep.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	for _, id := range []string{req.EntityID, req.DependsOnEntityID} {
		exists, err := s.store.EntityExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: entity %s", ErrNotFound, id)
		}
	}

	if err := s.store.CreateDependency(ctx, dep); err != nil {
		return nil, fmt.Errorf("creating dependency: %w", err)
	}
	s.logger.Info("dependency created",
		"id", dep.ID, "entity", dep.EntityID, "depends_on", dep.DependsOnEntityID)
	return dep, nil
}

// UpdateDependency updates the mutable fields of an edge.
func (s *Service) UpdateDependency(ctx context.Context, dep *types.EntityDependency) (*types.EntityDependency, error) {
	if err := dep.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	ok, err := s.store.UpdateDependency(ctx, dep)
	if err != nil {
		return nil, fmt.Errorf("updating dependency: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: dependency %s", ErrNotFound, dep.ID)
	}
	return s.store.GetDependency(ctx, dep.ID)
}

// DeleteDependency soft-deletes an edge.
func (s *Service) DeleteDependency(ctx context.Context, id string) error {
	ok, err := s.store.DeleteDependency(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting dependency: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: dependency %s", ErrNotFound, id)
	}
	s.logger.Info("dependency deleted", "id", id)
	return nil
}

// ListDependencies returns what an entity depends on, ord ascending.
func (s *Service) ListDependencies(ctx context.Context, entityID string) ([]types.EntityDependency, error) {
	if err := s.requireEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return s.store.OutgoingDependencies(ctx, entityID)
}

// ListDependents returns what depends on an entity, ord ascending.
func (s *Service) ListDependents(ctx context.Context, entityID string) ([]types.EntityDependency, error) {
	if err := s.requireEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return s.store.IncomingDependencies(ctx, entityID)
}

func (s *Service) requireEntity(ctx context.Context, entityID string) error {
	exists, err := s.store.EntityExists(ctx, entityID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: entity %s", ErrNotFound, entityID)
	}
	return nil
}
