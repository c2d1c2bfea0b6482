package api

import (
	"net/http"
	"strconv"

	"github.com/pulse-ops/statusgraph/internal/service"
	"github.com/pulse-ops/statusgraph/internal/store"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// =============================================================================
// ENTITY ENDPOINTS
// =============================================================================

type createEntityRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"description,omitempty" validate:"max=2000"`
	EntityType  string            `json:"entity_type" validate:"required"`
	URL         string            `json:"url,omitempty" validate:"omitempty,url"`
	Version     string            `json:"version,omitempty"`
	Owner       string            `json:"owner,omitempty"`
	Location    string            `json:"location,omitempty"`
	Group       string            `json:"group,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IsActive    *bool             `json:"is_active,omitempty"`
	IsCritical  bool              `json:"is_critical,omitempty"`
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req createEntityRequest
	if err := s.readValidJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// New entities default to active unless the caller says otherwise.
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	entity, err := s.svc.CreateEntity(r.Context(), service.CreateEntityRequest{
		WorkspaceID: workspaceID(r),
		Name:        req.Name,
		Description: req.Description,
		EntityType:  types.EntityType(req.EntityType),
		URL:         req.URL,
		Version:     req.Version,
		Owner:       req.Owner,
		Location:    req.Location,
		Group:       req.Group,
		Metadata:    req.Metadata,
		IsActive:    active,
		IsCritical:  req.IsCritical,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := store.EntityListParams{
		EntityType: types.EntityType(query.Get("type")),
		Search:     query.Get("search"),
	}
	if v := query.Get("critical"); v != "" {
		critical := v == "true"
		params.Critical = &critical
	}
	if v := query.Get("active"); v != "" {
		active := v == "true"
		params.Active = &active
	}

	entities, err := s.svc.ListEntities(r.Context(), workspaceID(r), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// Current-status filter resolves against the attached latest row, so it
	// can only be applied after the fetch.
	if status := types.EntityStatus(query.Get("status")); status != "" {
		filtered := entities[:0]
		for _, e := range entities {
			if e.CurrentStatus() == status {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"count":    len(entities),
	})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "entity ID required")
		return
	}

	entity := s.requireEntity(w, r, entityID)
	if entity == nil {
		return
	}

	s.writeJSON(w, http.StatusOK, entity)
}

type updateEntityRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"description,omitempty" validate:"max=2000"`
	EntityType  string            `json:"entity_type" validate:"required"`
	URL         string            `json:"url,omitempty" validate:"omitempty,url"`
	Version     string            `json:"version,omitempty"`
	Owner       string            `json:"owner,omitempty"`
	Location    string            `json:"location,omitempty"`
	Group       string            `json:"group,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IsActive    bool              `json:"is_active"`
	IsCritical  bool              `json:"is_critical"`
}

func (s *Server) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "entity ID required")
		return
	}

	var req updateEntityRequest
	if err := s.readValidJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.requireEntity(w, r, entityID) == nil {
		return
	}

	entity, err := s.svc.UpdateEntity(r.Context(), &types.Entity{
		ID:          entityID,
		WorkspaceID: workspaceID(r),
		Name:        req.Name,
		Description: req.Description,
		EntityType:  types.EntityType(req.EntityType),
		URL:         req.URL,
		Version:     req.Version,
		Owner:       req.Owner,
		Location:    req.Location,
		Group:       req.Group,
		Metadata:    req.Metadata,
		IsActive:    req.IsActive,
		IsCritical:  req.IsCritical,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateEntityCaches(r)
	s.writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "entity ID required")
		return
	}

	if s.requireEntity(w, r, entityID) == nil {
		return
	}

	if err := s.svc.DeleteEntity(r.Context(), entityID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateEntityCaches(r)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DEPENDENCY TREE
// =============================================================================

func (s *Server) handleDependencyTree(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "entity ID required")
		return
	}

	if s.requireEntity(w, r, entityID) == nil {
		return
	}

	cacheKey := "dependency_tree_" + entityID

	// Try cache first
	if s.cache != nil {
		if data, err := s.cache.Get(r.Context(), cacheKey); err == nil && data != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	tree, err := s.svc.BuildDependencyTree(r.Context(), entityID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// Cache the result
	if s.cache != nil {
		if err := s.cache.SetJSON(r.Context(), cacheKey, tree, cacheTTLDependencyTree); err != nil {
			s.logger.Warn("failed to cache dependency tree", "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, tree)
}

// =============================================================================
// STATUS READS
// =============================================================================

func (s *Server) handleStatusSummary(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "entity ID required")
		return
	}

	if s.requireEntity(w, r, entityID) == nil {
		return
	}

	from, err := parseTimeParam(r, "from")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Cache key includes the window
	cacheKey := "status_summary_" + entityID + "_" + r.URL.Query().Get("from") + "_" + r.URL.Query().Get("to")

	// Try cache first
	if s.cache != nil {
		if data, err := s.cache.Get(r.Context(), cacheKey); err == nil && data != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	summary, err := s.svc.SummarizeStatus(r.Context(), entityID, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// Cache the result
	if s.cache != nil {
		if err := s.cache.SetJSON(r.Context(), cacheKey, summary, cacheTTLStatusSummary); err != nil {
			s.logger.Warn("failed to cache status summary", "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleStatusHistory(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "entity ID required")
		return
	}

	if s.requireEntity(w, r, entityID) == nil {
		return
	}

	from, err := parseTimeParam(r, "from")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := store.HistoryQueryParams{
		From:   from,
		To:     to,
		Status: types.EntityStatus(r.URL.Query().Get("status")),
	}

	// Optional pagination
	page, pageSize := 0, 0
	if v := r.URL.Query().Get("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		pageSize, _ = strconv.Atoi(v)
	}
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		params.Limit = pageSize
		params.Offset = (page - 1) * pageSize
	}

	history, err := s.svc.ListStatusHistory(r.Context(), entityID, params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	response := map[string]any{
		"entity_id": entityID,
		"history":   history,
		"count":     len(history),
	}
	if pageSize > 0 {
		total, err := s.svc.CountStatusHistory(r.Context(), entityID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		response["page"] = page
		response["page_size"] = pageSize
		response["total"] = total
	}

	s.writeJSON(w, http.StatusOK, response)
}
