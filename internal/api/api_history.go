package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pulse-ops/statusgraph/internal/service"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// =============================================================================
// STATUS INGESTION
// =============================================================================

type appendStatusRequest struct {
	EntityID         string   `json:"entity_id" validate:"required"`
	Status           string   `json:"status" validate:"required"`
	StatusMessage    string   `json:"status_message,omitempty" validate:"max=2000"`
	ResponseTime     *float64 `json:"response_time,omitempty"`
	UptimePercentage *float64 `json:"uptime_percentage,omitempty"`

	// CheckedAt is RFC 3339; the server clock is used when omitted.
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

func (s *Server) handleAppendStatus(w http.ResponseWriter, r *http.Request) {
	var req appendStatusRequest
	if err := s.readValidJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	svcReq := service.AppendStatusRequest{
		EntityID:         req.EntityID,
		Status:           types.EntityStatus(req.Status),
		StatusMessage:    req.StatusMessage,
		ResponseTime:     req.ResponseTime,
		UptimePercentage: req.UptimePercentage,
	}
	if req.CheckedAt != nil {
		svcReq.CheckedAt = *req.CheckedAt
	}

	record, err := s.svc.AppendStatus(r.Context(), svcReq)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateEntityCaches(r)
	s.writeJSON(w, http.StatusCreated, record)
}

type updateStatusRequest struct {
	Status           string     `json:"status" validate:"required"`
	StatusMessage    string     `json:"status_message,omitempty" validate:"max=2000"`
	ResponseTime     *float64   `json:"response_time,omitempty"`
	UptimePercentage *float64   `json:"uptime_percentage,omitempty"`
	CheckedAt        *time.Time `json:"checked_at,omitempty"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid history ID")
		return
	}

	var req updateStatusRequest
	if err := s.readValidJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := s.svc.GetStatusHistory(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	record.Status = types.EntityStatus(req.Status)
	record.StatusMessage = req.StatusMessage
	record.ResponseTime = req.ResponseTime
	record.UptimePercentage = req.UptimePercentage
	if req.CheckedAt != nil {
		record.CheckedAt = *req.CheckedAt
	}

	updated, err := s.svc.UpdateStatusHistory(r.Context(), record)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateEntityCaches(r)
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid history ID")
		return
	}

	if err := s.svc.DeleteStatusHistory(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateEntityCaches(r)
	w.WriteHeader(http.StatusNoContent)
}

// handleStatusHistoryRange returns every observation in the caller's
// workspace within a required [from, to] window, newest first. Used by
// reporting dashboards that chart all entities at once.
func (s *Server) handleStatusHistoryRange(w http.ResponseWriter, r *http.Request) {
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
	if from == nil || to == nil {
		s.writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	history, err := s.svc.ListStatusHistoryRange(r.Context(), workspaceID(r), *from, *to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"history": history,
		"count":   len(history),
	})
}

// =============================================================================
// WORKSPACE INGEST CREDENTIALS
// =============================================================================

func (s *Server) handleMintAPIKey(w http.ResponseWriter, r *http.Request) {
	wsID := r.PathValue("id")
	if wsID == "" {
		s.writeError(w, http.StatusBadRequest, "workspace ID required")
		return
	}

	ws, err := s.workspaces.GetWorkspace(r.Context(), wsID)
	if err != nil {
		s.logger.Error("get workspace failed", "workspace", wsID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get workspace")
		return
	}
	if ws == nil {
		s.writeError(w, http.StatusNotFound, "workspace not found")
		return
	}

	plaintext, hash, err := GenerateWorkspaceAPIKey(wsID)
	if err != nil {
		s.logger.Error("API key generation failed", "workspace", wsID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	ok, err := s.workspaces.SetWorkspaceAPIKey(r.Context(), wsID, hash)
	if err != nil {
		s.logger.Error("store API key failed", "workspace", wsID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store API key")
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "workspace not found")
		return
	}

	s.logger.Info("ingest API key minted", "workspace", wsID)

	// The plaintext key is returned exactly once; only the hash is stored.
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"workspace_id": wsID,
		"api_key":      plaintext,
	})
}
