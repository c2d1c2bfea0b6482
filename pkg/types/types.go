// Package types defines the core domain types for the status graph.
//
// # Design Principles
//
// 1. Simplicity: Types represent the domain model directly, no ORM abstractions
// 2. Serialization: All types are JSON-serializable for API transport
// 3. Immutability: Status history is append-only; corrections create explicit updates
// 4. Validation: Types include Validate() methods for business rule enforcement
package types

import (
	"fmt"
	"math"
	"time"
)

// =============================================================================
// ENTITY
// =============================================================================

// EntityType classifies the kind of monitored object.
type EntityType string

const (
	EntityTypeServer       EntityType = "server"
	EntityTypeReport       EntityType = "report"
	EntityTypeDataset      EntityType = "dataset"
	EntityTypeDatabase     EntityType = "database"
	EntityTypeDataPipeline EntityType = "data_pipeline"
	EntityTypeTable        EntityType = "table"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeServer, EntityTypeReport, EntityTypeDataset,
		EntityTypeDatabase, EntityTypeDataPipeline, EntityTypeTable:
		return true
	}
	return false
}

// Entity represents a monitored object within a workspace.
//
// Entities own their outgoing dependency edges and their status history.
// Deletion is logical: a soft-deleted entity stays in the database so that
// history rows keep a valid reference, but every read path excludes it.
type Entity struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	EntityType  EntityType `json:"entity_type"`
	URL         string     `json:"url,omitempty"`
	Version     string     `json:"version,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	Location    string     `json:"location,omitempty"`
	Group       string     `json:"group,omitempty"`

	// Metadata holds free-form key/value annotations, stored as JSONB.
	Metadata map[string]string `json:"metadata,omitempty"`

	IsActive   bool `json:"is_active"`
	IsCritical bool `json:"is_critical"`

	// LatestStatus is attached by list/get queries that resolve the most
	// recent non-deleted history row. Nil means no history exists yet and
	// the entity's status renders as Unknown.
	LatestStatus *EntityStatusHistory `json:"latest_status,omitempty"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks business rules for entity creation/update.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if len(e.Name) > 200 {
		return fmt.Errorf("entity name exceeds 200 characters")
	}
	if e.WorkspaceID == "" {
		return fmt.Errorf("workspace_id is required")
	}
	if !e.EntityType.Valid() {
		return fmt.Errorf("invalid entity type: %q", e.EntityType)
	}
	return nil
}

// CurrentStatus returns the entity's resolved status, defaulting to Unknown
// when no history has been recorded.
func (e *Entity) CurrentStatus() EntityStatus {
	if e.LatestStatus == nil {
		return StatusUnknown
	}
	return e.LatestStatus.Status
}

// =============================================================================
// STATUS
// =============================================================================

// EntityStatus represents an observed health state.
type EntityStatus string

const (
	StatusUnknown     EntityStatus = "unknown"
	StatusOnline      EntityStatus = "online"
	StatusOffline     EntityStatus = "offline"
	StatusDegraded    EntityStatus = "degraded"
	StatusMaintenance EntityStatus = "maintenance"
	StatusError       EntityStatus = "error"
)

// Valid reports whether s is a known status value.
func (s EntityStatus) Valid() bool {
	switch s {
	case StatusUnknown, StatusOnline, StatusOffline,
		StatusDegraded, StatusMaintenance, StatusError:
		return true
	}
	return false
}

// EntityStatusHistory is a single immutable point in an entity's status
// timeseries. Rows are appended on every health check or externally reported
// observation and soft-deleted, never removed.
type EntityStatusHistory struct {
	ID            int64        `json:"id"`
	EntityID      string       `json:"entity_id"`
	Status        EntityStatus `json:"status"`
	StatusMessage string       `json:"status_message,omitempty"`

	// ResponseTime is in milliseconds. Nil means the observation carried no
	// timing sample; aggregation excludes it rather than treating it as zero.
	ResponseTime *float64 `json:"response_time,omitempty"`

	// UptimePercentage is 0-100 inclusive, nil when not sampled.
	UptimePercentage *float64 `json:"uptime_percentage,omitempty"`

	CheckedAt time.Time  `json:"checked_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks observation bounds before any persistence call.
func (h *EntityStatusHistory) Validate() error {
	if h.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	if !h.Status.Valid() {
		return fmt.Errorf("invalid status: %q", h.Status)
	}
	if h.ResponseTime != nil && *h.ResponseTime < 0 {
		return fmt.Errorf("response_time must be non-negative, got %v", *h.ResponseTime)
	}
	if h.UptimePercentage != nil && (*h.UptimePercentage < 0 || *h.UptimePercentage > 100) {
		return fmt.Errorf("uptime_percentage must be between 0 and 100, got %v", *h.UptimePercentage)
	}
	if len(h.StatusMessage) > 2000 {
		return fmt.Errorf("status_message exceeds 2000 characters")
	}
	return nil
}

// Round2 rounds a metric value to two decimal places. Applied to response
// time and uptime on every write so stored values are stable for equality
// comparison regardless of the reporter's precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// =============================================================================
// DEPENDENCY EDGES
// =============================================================================

// EntityDependency is a directed edge: EntityID depends on DependsOnEntityID.
//
// The edge set is a general directed graph; cycles are permitted and multiple
// edges between the same pair are not deduplicated. Order gives the ascending
// display/check position among an entity's edges.
type EntityDependency struct {
	ID                string     `json:"id"`
	EntityID          string     `json:"entity_id"`
	DependsOnEntityID string     `json:"depends_on_entity_id"`
	Description       string     `json:"description,omitempty"`
	IsActive          bool       `json:"is_active"`
	IsCritical        bool       `json:"is_critical"`
	DependencyType    EntityType `json:"dependency_type,omitempty"`
	Order             int        `json:"order"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Validate checks business rules for edge creation/update.
func (d *EntityDependency) Validate() error {
	if d.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	if d.DependsOnEntityID == "" {
		return fmt.Errorf("depends_on_entity_id is required")
	}
	if d.EntityID == d.DependsOnEntityID {
		return fmt.Errorf("entity cannot depend on itself")
	}
	if len(d.Description) > 500 {
		return fmt.Errorf("description exceeds 500 characters")
	}
	if d.DependencyType != "" && !d.DependencyType.Valid() {
		return fmt.Errorf("invalid dependency type: %q", d.DependencyType)
	}
	return nil
}

// =============================================================================
// DEPENDENCY TREE (derived, never persisted)
// =============================================================================

// DependencyTree is the read-only projection returned by a tree build.
// It is constructed fresh per request and discarded after serialization.
type DependencyTree struct {
	EntityID      string                `json:"entity_id"`
	EntityName    string                `json:"entity_name"`
	EntityType    EntityType            `json:"entity_type"`
	CurrentStatus EntityStatus          `json:"current_status"`
	Dependencies  []*DependencyTreeNode `json:"dependencies"`
	Dependents    []*DependencyTreeNode `json:"dependents"`
}

// DependencyTreeNode is one resolved neighbor in the tree. Level is 0 for
// direct neighbors of the root and increases with depth.
type DependencyTreeNode struct {
	EntityID      string                `json:"entity_id"`
	EntityName    string                `json:"entity_name"`
	EntityType    EntityType            `json:"entity_type"`
	CurrentStatus EntityStatus          `json:"current_status"`
	IsCritical    bool                  `json:"is_critical"`
	IsActive      bool                  `json:"is_active"`
	Description   string                `json:"description,omitempty"`
	Order         int                   `json:"order"`
	Level         int                   `json:"level"`
	Children      []*DependencyTreeNode `json:"children"`
}

// =============================================================================
// STATUS SUMMARY
// =============================================================================

// StatusSummary aggregates an entity's status history over a time window.
//
// Averages are computed over the rows where the metric is present; rows with
// a nil sample are excluded from that average but still counted in
// TotalChecks. The invariant sum(StatusCounts) == TotalChecks always holds.
type StatusSummary struct {
	EntityID            string               `json:"entity_id"`
	StatusCounts        map[EntityStatus]int `json:"status_counts"`
	AverageResponseTime float64              `json:"average_response_time"`
	AverageUptime       float64              `json:"average_uptime"`
	TotalChecks         int                  `json:"total_checks"`
	From                *time.Time           `json:"from,omitempty"`
	To                  *time.Time           `json:"to,omitempty"`
}

// =============================================================================
// WORKSPACE
// =============================================================================

// Workspace is the tenant boundary scoping entities and ingest credentials.
type Workspace struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	APIKeyCreatedAt *time.Time `json:"api_key_created_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
