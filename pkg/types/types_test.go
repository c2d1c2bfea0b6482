package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityValidate(t *testing.T) {
	valid := Entity{
		WorkspaceID: "ws1",
		Name:        "api-server",
		EntityType:  EntityTypeServer,
	}

	tests := []struct {
		name    string
		mutate  func(*Entity)
		wantErr bool
	}{
		{"valid", func(e *Entity) {}, false},
		{"missing name", func(e *Entity) { e.Name = "" }, true},
		{"name too long", func(e *Entity) { e.Name = strings.Repeat("x", 201) }, true},
		{"name at limit", func(e *Entity) { e.Name = strings.Repeat("x", 200) }, false},
		{"missing workspace", func(e *Entity) { e.WorkspaceID = "" }, true},
		{"bad type", func(e *Entity) { e.EntityType = "mainframe" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEntityCurrentStatus(t *testing.T) {
	e := Entity{}
	assert.Equal(t, StatusUnknown, e.CurrentStatus(), "no history means Unknown")

	e.LatestStatus = &EntityStatusHistory{Status: StatusDegraded}
	assert.Equal(t, StatusDegraded, e.CurrentStatus())
}

func TestStatusHistoryValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	valid := EntityStatusHistory{
		EntityID: "e1",
		Status:   StatusOnline,
	}

	tests := []struct {
		name    string
		mutate  func(*EntityStatusHistory)
		wantErr bool
	}{
		{"valid", func(h *EntityStatusHistory) {}, false},
		{"missing entity", func(h *EntityStatusHistory) { h.EntityID = "" }, true},
		{"bad status", func(h *EntityStatusHistory) { h.Status = "flaky" }, true},
		{"negative response time", func(h *EntityStatusHistory) { h.ResponseTime = f(-1) }, true},
		{"zero response time", func(h *EntityStatusHistory) { h.ResponseTime = f(0) }, false},
		{"uptime below range", func(h *EntityStatusHistory) { h.UptimePercentage = f(-0.1) }, true},
		{"uptime above range", func(h *EntityStatusHistory) { h.UptimePercentage = f(100.1) }, true},
		{"uptime at bounds", func(h *EntityStatusHistory) { h.UptimePercentage = f(100) }, false},
		{"message too long", func(h *EntityStatusHistory) { h.StatusMessage = strings.Repeat("m", 2001) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := valid
			tt.mutate(&h)
			err := h.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDependencyValidate(t *testing.T) {
	valid := EntityDependency{
		EntityID:          "a",
		DependsOnEntityID: "b",
	}

	tests := []struct {
		name    string
		mutate  func(*EntityDependency)
		wantErr bool
	}{
		{"valid", func(d *EntityDependency) {}, false},
		{"missing entity", func(d *EntityDependency) { d.EntityID = "" }, true},
		{"missing target", func(d *EntityDependency) { d.DependsOnEntityID = "" }, true},
		{"self dependency", func(d *EntityDependency) { d.DependsOnEntityID = "a" }, true},
		{"description too long", func(d *EntityDependency) { d.Description = strings.Repeat("d", 501) }, true},
		{"bad dependency type", func(d *EntityDependency) { d.DependencyType = "mainframe" }, true},
		{"empty dependency type ok", func(d *EntityDependency) { d.DependencyType = "" }, false},
		{"typed dependency ok", func(d *EntityDependency) { d.DependencyType = EntityTypeDatabase }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 120.57, Round2(120.567))
	assert.Equal(t, 120.56, Round2(120.564))
	assert.Equal(t, 99.9, Round2(99.9))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, -1.23, Round2(-1.234))
}
