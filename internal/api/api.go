// Package api provides HTTP handlers for the status graph server.
//
// # Endpoints
//
// Management API (requires X-Workspace-ID):
//   - POST   /api/v1/entities - Create entity
//   - GET    /api/v1/entities - List entities (filters: type, critical, active, status, search)
//   - GET    /api/v1/entities/{id} - Get entity with latest status
//   - PUT    /api/v1/entities/{id} - Update entity
//   - DELETE /api/v1/entities/{id} - Soft-delete entity
//   - GET    /api/v1/entities/{id}/dependency-tree - Bounded-depth dependency/dependent tree
//   - GET    /api/v1/entities/{id}/dependencies - Outgoing edges
//   - GET    /api/v1/entities/{id}/dependents - Incoming edges
//   - GET    /api/v1/entities/{id}/status/summary - Aggregated status over a window
//   - GET    /api/v1/entities/{id}/status/history - Status timeseries, newest first
//   - GET    /api/v1/status-history - Workspace-wide observations in a date range
//   - POST   /api/v1/dependencies - Create edge
//   - PUT    /api/v1/dependencies/{id} - Update edge
//   - DELETE /api/v1/dependencies/{id} - Delete edge
//   - POST   /api/v1/workspaces/{id}/api-key - Mint ingest API key
//
// Ingest API (API key auth, grace period by default):
//   - POST   /api/v1/status-history - Append status observation
//   - PUT    /api/v1/status-history/{id} - Correct an observation
//   - DELETE /api/v1/status-history/{id} - Soft-delete an observation
//
// Health:
//   - GET /api/v1/health - Health check
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pulse-ops/statusgraph/internal/cache"
	"github.com/pulse-ops/statusgraph/internal/metrics"
	"github.com/pulse-ops/statusgraph/internal/service"
	"github.com/pulse-ops/statusgraph/internal/store"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// Cache TTLs for various endpoints
const (
	cacheTTLDependencyTree = 30 * time.Second
	cacheTTLStatusSummary  = 30 * time.Second
)

var validate = validator.New()

// Service is the business-logic surface the handlers depend on.
// *service.Service implements it; tests substitute their own.
type Service interface {
	CreateEntity(ctx context.Context, req service.CreateEntityRequest) (*types.Entity, error)
	GetEntity(ctx context.Context, id string) (*types.Entity, error)
	ListEntities(ctx context.Context, workspaceID string, params store.EntityListParams) ([]types.Entity, error)
	UpdateEntity(ctx context.Context, entity *types.Entity) (*types.Entity, error)
	DeleteEntity(ctx context.Context, id string) error
	BuildDependencyTree(ctx context.Context, entityID string) (*types.DependencyTree, error)

	CreateDependency(ctx context.Context, req service.CreateDependencyRequest) (*types.EntityDependency, error)
	UpdateDependency(ctx context.Context, dep *types.EntityDependency) (*types.EntityDependency, error)
	DeleteDependency(ctx context.Context, id string) error
	ListDependencies(ctx context.Context, entityID string) ([]types.EntityDependency, error)
	ListDependents(ctx context.Context, entityID string) ([]types.EntityDependency, error)

	AppendStatus(ctx context.Context, req service.AppendStatusRequest) (*types.EntityStatusHistory, error)
	GetStatusHistory(ctx context.Context, id int64) (*types.EntityStatusHistory, error)
	UpdateStatusHistory(ctx context.Context, record *types.EntityStatusHistory) (*types.EntityStatusHistory, error)
	DeleteStatusHistory(ctx context.Context, id int64) error
	ListStatusHistory(ctx context.Context, entityID string, params store.HistoryQueryParams) ([]types.EntityStatusHistory, error)
	CountStatusHistory(ctx context.Context, entityID string) (int, error)
	ListStatusHistoryRange(ctx context.Context, workspaceID string, from, to time.Time) ([]types.EntityStatusHistory, error)
	SummarizeStatus(ctx context.Context, entityID string, from, to *time.Time) (*types.StatusSummary, error)
}

// WorkspaceStore provides workspace credential lookups for auth and key
// minting. *store.Store implements it.
type WorkspaceStore interface {
	GetWorkspace(ctx context.Context, id string) (*types.Workspace, error)
	SetWorkspaceAPIKey(ctx context.Context, workspaceID, keyHash string) (bool, error)
	GetWorkspaceAPIKeyHash(ctx context.Context, workspaceID string) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	svc        Service
	workspaces WorkspaceStore
	health     *metrics.Collector
	cache      *cache.Cache
	logger     *slog.Logger
	mux        *http.ServeMux

	// Ingest authentication (disabled by default for grace period)
	ingestAuthEnabled bool
}

// NewServer creates a new API server.
func NewServer(svc Service, workspaces WorkspaceStore, health *metrics.Collector, responseCache *cache.Cache, logger *slog.Logger) *Server {
	s := &Server{
		svc:        svc,
		workspaces: workspaces,
		health:     health,
		cache:      responseCache,
		logger:     logger,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Mux returns the underlying ServeMux for registering additional routes.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// EnableIngestAuth enables workspace API key enforcement on the ingest routes.
// By default, auth is in grace period mode (logs but doesn't reject).
func (s *Server) EnableIngestAuth() {
	s.ingestAuthEnabled = true
	s.logger.Info("ingest API key authentication enabled")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Workspace-ID")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Log request
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request",
		"method", r.Method,
		"path", r.URL.Path,
		"duration", time.Since(start))
}

func (s *Server) registerRoutes() {
	workspace := s.WorkspaceMiddleware()
	ingestAuth := s.IngestAuthMiddleware(IngestAuthConfig{
		Enabled: s.ingestAuthEnabled,
		Logger:  s.logger,
	})

	// Health
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	// Entities - static routes must come before wildcard {id} routes
	s.mux.HandleFunc("POST /api/v1/entities", wrapHandler(s.handleCreateEntity, workspace))
	s.mux.HandleFunc("GET /api/v1/entities", wrapHandler(s.handleListEntities, workspace))
	s.mux.HandleFunc("GET /api/v1/entities/{id}", wrapHandler(s.handleGetEntity, workspace))
	s.mux.HandleFunc("PUT /api/v1/entities/{id}", wrapHandler(s.handleUpdateEntity, workspace))
	s.mux.HandleFunc("DELETE /api/v1/entities/{id}", wrapHandler(s.handleDeleteEntity, workspace))

	// Dependency tree and edge listings
	s.mux.HandleFunc("GET /api/v1/entities/{id}/dependency-tree", wrapHandler(s.handleDependencyTree, workspace))
	s.mux.HandleFunc("GET /api/v1/entities/{id}/dependencies", wrapHandler(s.handleListDependencies, workspace))
	s.mux.HandleFunc("GET /api/v1/entities/{id}/dependents", wrapHandler(s.handleListDependents, workspace))

	// Status reads
	s.mux.HandleFunc("GET /api/v1/entities/{id}/status/summary", wrapHandler(s.handleStatusSummary, workspace))
	s.mux.HandleFunc("GET /api/v1/entities/{id}/status/history", wrapHandler(s.handleStatusHistory, workspace))
	s.mux.HandleFunc("GET /api/v1/status-history", wrapHandler(s.handleStatusHistoryRange, workspace))

	// Dependency edges
	s.mux.HandleFunc("POST /api/v1/dependencies", wrapHandler(s.handleCreateDependency, workspace))
	s.mux.HandleFunc("PUT /api/v1/dependencies/{id}", wrapHandler(s.handleUpdateDependency, workspace))
	s.mux.HandleFunc("DELETE /api/v1/dependencies/{id}", wrapHandler(s.handleDeleteDependency, workspace))

	// Workspace ingest credentials
	s.mux.HandleFunc("POST /api/v1/workspaces/{id}/api-key", s.handleMintAPIKey)

	// Status ingestion (authenticated - reporters submit observations)
	s.mux.HandleFunc("POST /api/v1/status-history", wrapHandler(s.handleAppendStatus, ingestAuth))
	s.mux.HandleFunc("PUT /api/v1/status-history/{id}", wrapHandler(s.handleUpdateStatus, ingestAuth))
	s.mux.HandleFunc("DELETE /api/v1/status-history/{id}", wrapHandler(s.handleDeleteStatus, ingestAuth))
}

// =============================================================================
// HEALTH
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	health := s.health.GetHealth(r.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// readValidJSON decodes the body and checks the struct's validate tags.
func (s *Server) readValidJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service sentinel errors to HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// workspaceID extracts the tenant scope set by WorkspaceMiddleware.
func workspaceID(r *http.Request) string {
	return r.Header.Get("X-Workspace-ID")
}

// requireEntity loads an entity and verifies it belongs to the request's
// workspace. On failure it writes the error response (404 for foreign or
// missing entities, so tenants can't probe each other's IDs) and returns nil.
func (s *Server) requireEntity(w http.ResponseWriter, r *http.Request, entityID string) *types.Entity {
	entity, err := s.svc.GetEntity(r.Context(), entityID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil
	}
	if entity.WorkspaceID != workspaceID(r) {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return nil
	}
	return entity
}

// parseTimeParam parses an optional RFC 3339 query parameter.
func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: must be RFC 3339", name)
	}
	return &t, nil
}

// invalidateEntityCaches drops cached tree and summary responses after a
// write that can change them. Trees are invalidated wholesale because a
// status or edge change is visible from every ancestor's tree.
func (s *Server) invalidateEntityCaches(r *http.Request) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(r.Context(), "dependency_tree_"); err != nil {
		s.logger.Warn("failed to invalidate tree cache", "error", err)
	}
	if err := s.cache.InvalidatePrefix(r.Context(), "status_summary_"); err != nil {
		s.logger.Warn("failed to invalidate summary cache", "error", err)
	}
}
