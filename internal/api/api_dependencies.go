package api

import (
	"net/http"

	"github.com/pulse-ops/statusgraph/internal/service"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// =============================================================================
// DEPENDENCY EDGE ENDPOINTS
// =============================================================================

type createDependencyRequest struct {
	EntityID          string `json:"entity_id" validate:"required"`
	DependsOnEntityID string `json:"depends_on_entity_id" validate:"required"`
	Description       string `json:"description,omitempty" validate:"max=500"`
	IsActive          *bool  `json:"is_active,omitempty"`
	IsCritical        bool   `json:"is_critical,omitempty"`
	DependencyType    string `json:"dependency_type,omitempty"`
	Order             int    `json:"order,omitempty" validate:"min=0"`
}

func (s *Server) handleCreateDependency(w http.ResponseWriter, r *http.Request) {
	var req createDependencyRequest
	if err := s.readValidJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	dep, err := s.svc.CreateDependency(r.Context(), service.CreateDependencyRequest{
		EntityID:          req.EntityID,
		DependsOnEntityID: req.DependsOnEntityID,
		Description:       req.Description,
		IsActive:          active,
		IsCritical:        req.IsCritical,
		DependencyType:    types.EntityType(req.DependencyType),
		Order:             req.Order,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateEntityCaches(r)
	s.writeJSON(w, http.StatusCreated, dep)
}

type updateDependencyRequest struct {
	EntityID          string `json:"entity_id" validate:"required"`
	DependsOnEntityID string `json:"depends_on_entity_id" validate:"required"`
	Description       string `json:"description,omitempty" validate:"max=500"`
	IsActive          bool   `json:"is_active"`
	IsCritical        bool   `json:"is_critical"`
	DependencyType    string `json:"dependency_type,omitempty"`
	Order             int    `json:"order" validate:"min=0"`
}

func (s *Server) handleUpdateDependency(w http.ResponseWriter, r *http.Request) {
	depID := r.PathValue("id")
	if depID == "" {
		s.writeError(w, http.StatusBadRequest, "dependency ID required")
		return
	}

	var req updateDependencyRequest
	if err := s.readValidJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dep, err := s.svc.UpdateDependency(r.Context(), &types.EntityDependency{
		ID:                depID,
		EntityID:          req.EntityID,
		DependsOnEntityID: req.DependsOnEntityID,
		Description:       req.Description,
		IsActive:          req.IsActive,
		IsCritical:        req.IsCritical,
		DependencyType:    types.EntityType(req.DependencyType),
		Order:             req.Order,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateEntityCaches(r)
	s.writeJSON(w, http.StatusOK, dep)
}

func (s *Server) handleDeleteDependency(w http.ResponseWriter, r *http.Request) {
	depID := r.PathValue("id")
	if depID == "" {
		s.writeError(w, http.StatusBadRequest, "dependency ID required")
		return
	}

	if err := s.svc.DeleteDependency(r.Context(), depID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateEntityCaches(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "entity ID required")
		return
	}

	if s.requireEntity(w, r, entityID) == nil {
		return
	}

	deps, err := s.svc.ListDependencies(r.Context(), entityID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"entity_id":    entityID,
		"dependencies": deps,
		"count":        len(deps),
	})
}

func (s *Server) handleListDependents(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "entity ID required")
		return
	}

	if s.requireEntity(w, r, entityID) == nil {
		return
	}

	deps, err := s.svc.ListDependents(r.Context(), entityID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"entity_id":  entityID,
		"dependents": deps,
		"count":      len(deps),
	})
}
