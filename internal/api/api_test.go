package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-ops/statusgraph/internal/service"
	"github.com/pulse-ops/statusgraph/internal/store"
	"github.com/pulse-ops/statusgraph/internal/testutil"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// stubService backs handler tests with in-memory data.
type stubService struct {
	entities map[string]*types.Entity
	listed   []types.Entity
	history  []types.EntityStatusHistory

	gotListParams     store.EntityListParams
	gotRangeWorkspace string
}

func (s *stubService) CreateEntity(ctx context.Context, req service.CreateEntityRequest) (*types.Entity, error) {
	return &types.Entity{
		ID:          "created",
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		EntityType:  req.EntityType,
		IsActive:    req.IsActive,
	}, nil
}

func (s *stubService) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	if e, ok := s.entities[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: entity %s", service.ErrNotFound, id)
}

func (s *stubService) ListEntities(ctx context.Context, workspaceID string, params store.EntityListParams) ([]types.Entity, error) {
	s.gotListParams = params
	return s.listed, nil
}

func (s *stubService) UpdateEntity(ctx context.Context, entity *types.Entity) (*types.Entity, error) {
	return entity, nil
}

func (s *stubService) DeleteEntity(ctx context.Context, id string) error { return nil }

func (s *stubService) BuildDependencyTree(ctx context.Context, entityID string) (*types.DependencyTree, error) {
	return &types.DependencyTree{EntityID: entityID}, nil
}

func (s *stubService) CreateDependency(ctx context.Context, req service.CreateDependencyRequest) (*types.EntityDependency, error) {
	return &types.EntityDependency{ID: "dep", EntityID: req.EntityID, DependsOnEntityID: req.DependsOnEntityID}, nil
}

func (s *stubService) UpdateDependency(ctx context.Context, dep *types.EntityDependency) (*types.EntityDependency, error) {
	return dep, nil
}

func (s *stubService) DeleteDependency(ctx context.Context, id string) error { return nil }

func (s *stubService) ListDependencies(ctx context.Context, entityID string) ([]types.EntityDependency, error) {
	return nil, nil
}

func (s *stubService) ListDependents(ctx context.Context, entityID string) ([]types.EntityDependency, error) {
	return nil, nil
}

func (s *stubService) AppendStatus(ctx context.Context, req service.AppendStatusRequest) (*types.EntityStatusHistory, error) {
	return &types.EntityStatusHistory{ID: 1, EntityID: req.EntityID, Status: req.Status}, nil
}

func (s *stubService) GetStatusHistory(ctx context.Context, id int64) (*types.EntityStatusHistory, error) {
	return &types.EntityStatusHistory{ID: id, EntityID: "e1", Status: types.StatusOnline}, nil
}

func (s *stubService) UpdateStatusHistory(ctx context.Context, record *types.EntityStatusHistory) (*types.EntityStatusHistory, error) {
	return record, nil
}

func (s *stubService) DeleteStatusHistory(ctx context.Context, id int64) error { return nil }

func (s *stubService) ListStatusHistory(ctx context.Context, entityID string, params store.HistoryQueryParams) ([]types.EntityStatusHistory, error) {
	return s.history, nil
}

func (s *stubService) CountStatusHistory(ctx context.Context, entityID string) (int, error) {
	return len(s.history), nil
}

func (s *stubService) ListStatusHistoryRange(ctx context.Context, workspaceID string, from, to time.Time) ([]types.EntityStatusHistory, error) {
	s.gotRangeWorkspace = workspaceID
	return s.history, nil
}

func (s *stubService) SummarizeStatus(ctx context.Context, entityID string, from, to *time.Time) (*types.StatusSummary, error) {
	return &types.StatusSummary{EntityID: entityID, StatusCounts: map[types.EntityStatus]int{}}, nil
}

func newTestServer(svc Service) *Server {
	return NewServer(svc, nil, nil, nil, testutil.NewTestLogger())
}

func doRequest(t *testing.T, srv *Server, method, path, workspace string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if workspace != "" {
		req.Header.Set("X-Workspace-ID", workspace)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestWorkspaceScoping(t *testing.T) {
	stub := &stubService{
		entities: map[string]*types.Entity{
			"e1": {ID: "e1", WorkspaceID: "ws-a", Name: "api-server", EntityType: types.EntityTypeServer, IsActive: true},
		},
	}
	srv := newTestServer(stub)

	updateBody := `{"name":"api-server","entity_type":"server","is_active":true,"is_critical":false}`

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantOK   int
		wantDeny int
	}{
		{"get entity", http.MethodGet, "/api/v1/entities/e1", "", http.StatusOK, http.StatusNotFound},
		{"update entity", http.MethodPut, "/api/v1/entities/e1", updateBody, http.StatusOK, http.StatusNotFound},
		{"delete entity", http.MethodDelete, "/api/v1/entities/e1", "", http.StatusNoContent, http.StatusNotFound},
		{"dependency tree", http.MethodGet, "/api/v1/entities/e1/dependency-tree", "", http.StatusOK, http.StatusNotFound},
		{"dependencies", http.MethodGet, "/api/v1/entities/e1/dependencies", "", http.StatusOK, http.StatusNotFound},
		{"dependents", http.MethodGet, "/api/v1/entities/e1/dependents", "", http.StatusOK, http.StatusNotFound},
		{"status summary", http.MethodGet, "/api/v1/entities/e1/status/summary", "", http.StatusOK, http.StatusNotFound},
		{"status history", http.MethodGet, "/api/v1/entities/e1/status/history", "", http.StatusOK, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, tt.method, tt.path, "ws-a", tt.body)
			assert.Equal(t, tt.wantOK, rec.Code, "own workspace")

			rec = doRequest(t, srv, tt.method, tt.path, "ws-b", tt.body)
			assert.Equal(t, tt.wantDeny, rec.Code, "foreign workspace")
		})
	}

	t.Run("unknown entity", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/entities/missing", "ws-a", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing workspace header", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/entities/e1", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListEntityFilters(t *testing.T) {
	online := &types.EntityStatusHistory{Status: types.StatusOnline}
	offline := &types.EntityStatusHistory{Status: types.StatusOffline}
	stub := &stubService{
		listed: []types.Entity{
			{ID: "e1", WorkspaceID: "ws-a", Name: "up", EntityType: types.EntityTypeServer, LatestStatus: online},
			{ID: "e2", WorkspaceID: "ws-a", Name: "down", EntityType: types.EntityTypeServer, LatestStatus: offline},
		},
	}
	srv := newTestServer(stub)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/entities?type=server&status=online", "ws-a", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, types.EntityTypeServer, stub.gotListParams.EntityType,
		"type filter should reach the store as a typed value")

	var resp struct {
		Entities []types.Entity `json:"entities"`
		Count    int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "e1", resp.Entities[0].ID)
}

func TestStatusHistoryRangeEndpoint(t *testing.T) {
	stub := &stubService{
		history: []types.EntityStatusHistory{
			{ID: 2, EntityID: "e1", Status: types.StatusOnline},
			{ID: 1, EntityID: "e2", Status: types.StatusError},
		},
	}
	srv := newTestServer(stub)

	t.Run("requires window", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/status-history", "ws-a", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed timestamps", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/status-history?from=yesterday&to=now", "ws-a", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns workspace rows", func(t *testing.T) {
		path := "/api/v1/status-history?from=2026-08-01T00:00:00Z&to=2026-08-29T00:00:00Z"
		rec := doRequest(t, srv, http.MethodGet, path, "ws-a", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ws-a", stub.gotRangeWorkspace)

		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
	})
}
