package deptree

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-ops/statusgraph/pkg/types"
)

// mockStore implements Store in memory for testing.
type mockStore struct {
	entities map[string]*types.Entity
	edges    []types.EntityDependency
	latest   map[string]types.EntityStatus

	// failOn makes the named method return an error.
	failOn string
}

func newMockStore() *mockStore {
	return &mockStore{
		entities: make(map[string]*types.Entity),
		latest:   make(map[string]types.EntityStatus),
	}
}

var errStoreDown = errors.New("store unavailable")

func (m *mockStore) addEntity(id string) {
	m.entities[id] = &types.Entity{
		ID:         id,
		Name:       "entity-" + id,
		EntityType: types.EntityTypeServer,
	}
}

func (m *mockStore) addEdge(from, to string, order int) {
	m.edges = append(m.edges, types.EntityDependency{
		ID:                fmt.Sprintf("edge-%s-%s-%d", from, to, order),
		EntityID:          from,
		DependsOnEntityID: to,
		IsActive:          true,
		Order:             order,
	})
}

func (m *mockStore) GetEntity(_ context.Context, id string) (*types.Entity, error) {
	if m.failOn == "GetEntity" {
		return nil, errStoreDown
	}
	return m.entities[id], nil
}

func (m *mockStore) OutgoingDependencies(_ context.Context, entityID string) ([]types.EntityDependency, error) {
	if m.failOn == "OutgoingDependencies" {
		return nil, errStoreDown
	}
	return m.selectEdges(func(e types.EntityDependency) bool { return e.EntityID == entityID }), nil
}

func (m *mockStore) IncomingDependencies(_ context.Context, entityID string) ([]types.EntityDependency, error) {
	if m.failOn == "IncomingDependencies" {
		return nil, errStoreDown
	}
	return m.selectEdges(func(e types.EntityDependency) bool { return e.DependsOnEntityID == entityID }), nil
}

func (m *mockStore) GetLatestStatus(_ context.Context, entityID string) (*types.EntityStatusHistory, error) {
	if m.failOn == "GetLatestStatus" {
		return nil, errStoreDown
	}
	status, ok := m.latest[entityID]
	if !ok {
		return nil, nil
	}
	return &types.EntityStatusHistory{EntityID: entityID, Status: status}, nil
}

func (m *mockStore) selectEdges(match func(types.EntityDependency) bool) []types.EntityDependency {
	var result []types.EntityDependency
	for _, e := range m.edges {
		if match(e) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Order < result[j].Order })
	return result
}

func TestBuildRootNotFound(t *testing.T) {
	b := NewBuilder(newMockStore())

	_, err := b.Build(context.Background(), "missing")
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestBuildIsolatedEntity(t *testing.T) {
	m := newMockStore()
	m.addEntity("x")

	tree, err := NewBuilder(m).Build(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, "x", tree.EntityID)
	assert.Equal(t, types.StatusUnknown, tree.CurrentStatus)
	assert.Empty(t, tree.Dependencies)
	assert.Empty(t, tree.Dependents)
}

func TestBuildRootStatusResolved(t *testing.T) {
	m := newMockStore()
	m.addEntity("x")
	m.latest["x"] = types.StatusDegraded

	tree, err := NewBuilder(m).Build(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDegraded, tree.CurrentStatus)
}

func TestBuildSimpleChain(t *testing.T) {
	m := newMockStore()
	m.addEntity("a")
	m.addEntity("b")
	m.addEntity("c")
	m.addEdge("a", "b", 0)
	m.addEdge("b", "c", 0)
	m.latest["b"] = types.StatusOnline

	tree, err := NewBuilder(m).Build(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, tree.Dependencies, 1)
	b := tree.Dependencies[0]
	assert.Equal(t, "b", b.EntityID)
	assert.Equal(t, 0, b.Level)
	assert.Equal(t, types.StatusOnline, b.CurrentStatus)

	require.Len(t, b.Children, 1)
	c := b.Children[0]
	assert.Equal(t, "c", c.EntityID)
	assert.Equal(t, 1, c.Level)
	assert.Equal(t, types.StatusUnknown, c.CurrentStatus)
	assert.Empty(t, c.Children)

	// c has one dependent path: b -> a.
	cTree, err := NewBuilder(m).Build(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, cTree.Dependents, 1)
	assert.Equal(t, "b", cTree.Dependents[0].EntityID)
	require.Len(t, cTree.Dependents[0].Children, 1)
	assert.Equal(t, "a", cTree.Dependents[0].Children[0].EntityID)
}

func TestBuildThreeCycle(t *testing.T) {
	// a -> b -> c -> a. The edge closing the cycle is omitted, not
	// re-expanded.
	m := newMockStore()
	m.addEntity("a")
	m.addEntity("b")
	m.addEntity("c")
	m.addEdge("a", "b", 0)
	m.addEdge("b", "c", 0)
	m.addEdge("c", "a", 0)

	tree, err := NewBuilder(m).Build(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, tree.Dependencies, 1)
	b := tree.Dependencies[0]
	assert.Equal(t, "b", b.EntityID)
	assert.Equal(t, 0, b.Level)

	require.Len(t, b.Children, 1)
	c := b.Children[0]
	assert.Equal(t, "c", c.EntityID)
	assert.Equal(t, 1, c.Level)
	assert.Empty(t, c.Children, "cycle edge back to root must be dropped")

	// The dependents side sees the cycle in reverse: a <- c <- b.
	require.Len(t, tree.Dependents, 1)
	assert.Equal(t, "c", tree.Dependents[0].EntityID)
	require.Len(t, tree.Dependents[0].Children, 1)
	assert.Equal(t, "b", tree.Dependents[0].Children[0].EntityID)
	assert.Empty(t, tree.Dependents[0].Children[0].Children)
}

func TestBuildSelfLoop(t *testing.T) {
	m := newMockStore()
	m.addEntity("a")
	m.addEdge("a", "a", 0)

	tree, err := NewBuilder(m).Build(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, tree.Dependencies)
	assert.Empty(t, tree.Dependents)
}

func TestBuildDepthCap(t *testing.T) {
	// Linear acyclic chain of depth 8: n0 -> n1 -> ... -> n8.
	// Only levels 0-4 are expanded; level-4 nodes keep empty children.
	m := newMockStore()
	for i := 0; i <= 8; i++ {
		m.addEntity(fmt.Sprintf("n%d", i))
	}
	for i := 0; i < 8; i++ {
		m.addEdge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1), 0)
	}

	tree, err := NewBuilder(m).Build(context.Background(), "n0")
	require.NoError(t, err)

	node := tree.Dependencies
	for level := 0; level <= 4; level++ {
		require.Len(t, node, 1, "level %d", level)
		assert.Equal(t, fmt.Sprintf("n%d", level+1), node[0].EntityID)
		assert.Equal(t, level, node[0].Level)
		node = node[0].Children
	}
	assert.Empty(t, node, "level-4 nodes must have empty children")
}

func TestBuildCustomDepth(t *testing.T) {
	m := newMockStore()
	for i := 0; i <= 3; i++ {
		m.addEntity(fmt.Sprintf("n%d", i))
	}
	for i := 0; i < 3; i++ {
		m.addEdge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1), 0)
	}

	tree, err := NewBuilderWithDepth(m, 2).Build(context.Background(), "n0")
	require.NoError(t, err)

	require.Len(t, tree.Dependencies, 1)
	require.Len(t, tree.Dependencies[0].Children, 1)
	assert.Empty(t, tree.Dependencies[0].Children[0].Children)
}

func TestBuildSiblingOrderPreserved(t *testing.T) {
	m := newMockStore()
	m.addEntity("root")
	for _, id := range []string{"p", "q", "r"} {
		m.addEntity(id)
	}
	// Insert out of order; Order must win.
	m.addEdge("root", "r", 30)
	m.addEdge("root", "p", 10)
	m.addEdge("root", "q", 20)

	tree, err := NewBuilder(m).Build(context.Background(), "root")
	require.NoError(t, err)

	require.Len(t, tree.Dependencies, 3)
	assert.Equal(t, "p", tree.Dependencies[0].EntityID)
	assert.Equal(t, "q", tree.Dependencies[1].EntityID)
	assert.Equal(t, "r", tree.Dependencies[2].EntityID)
	for _, n := range tree.Dependencies {
		assert.Equal(t, 0, n.Level)
	}
}

func TestBuildSharedDependencyInTwoBranches(t *testing.T) {
	// root -> x -> shared, root -> y -> shared. The shared entity appears in
	// both branches: only a path revisit is blocked, not a graph revisit.
	m := newMockStore()
	for _, id := range []string{"root", "x", "y", "shared"} {
		m.addEntity(id)
	}
	m.addEdge("root", "x", 0)
	m.addEdge("root", "y", 1)
	m.addEdge("x", "shared", 0)
	m.addEdge("y", "shared", 0)

	tree, err := NewBuilder(m).Build(context.Background(), "root")
	require.NoError(t, err)

	require.Len(t, tree.Dependencies, 2)
	require.Len(t, tree.Dependencies[0].Children, 1)
	require.Len(t, tree.Dependencies[1].Children, 1)
	assert.Equal(t, "shared", tree.Dependencies[0].Children[0].EntityID)
	assert.Equal(t, "shared", tree.Dependencies[1].Children[0].EntityID)
}

func TestBuildDanglingEdgeSkipped(t *testing.T) {
	m := newMockStore()
	m.addEntity("a")
	m.addEntity("b")
	m.addEdge("a", "ghost", 0)
	m.addEdge("a", "b", 1)

	tree, err := NewBuilder(m).Build(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, tree.Dependencies, 1)
	assert.Equal(t, "b", tree.Dependencies[0].EntityID)
}

func TestBuildEdgeMetadataCarried(t *testing.T) {
	m := newMockStore()
	m.addEntity("a")
	m.addEntity("b")
	m.edges = append(m.edges, types.EntityDependency{
		ID:                "e1",
		EntityID:          "a",
		DependsOnEntityID: "b",
		Description:       "primary datastore",
		IsActive:          true,
		IsCritical:        true,
		Order:             7,
	})

	tree, err := NewBuilder(m).Build(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, tree.Dependencies, 1)
	n := tree.Dependencies[0]
	assert.True(t, n.IsCritical)
	assert.True(t, n.IsActive)
	assert.Equal(t, "primary datastore", n.Description)
	assert.Equal(t, 7, n.Order)
}

func TestBuildIdempotent(t *testing.T) {
	m := newMockStore()
	for _, id := range []string{"root", "a", "b", "c"} {
		m.addEntity(id)
	}
	m.addEdge("root", "a", 0)
	m.addEdge("root", "b", 1)
	m.addEdge("a", "c", 0)
	m.addEdge("c", "root", 0) // cycle back
	m.latest["a"] = types.StatusOnline
	m.latest["c"] = types.StatusError

	b := NewBuilder(m)
	first, err := b.Build(context.Background(), "root")
	require.NoError(t, err)
	second, err := b.Build(context.Background(), "root")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildStoreErrorAbortsWholeTree(t *testing.T) {
	for _, method := range []string{"OutgoingDependencies", "IncomingDependencies", "GetLatestStatus"} {
		t.Run(method, func(t *testing.T) {
			m := newMockStore()
			m.addEntity("a")
			m.addEntity("b")
			m.addEdge("a", "b", 0)

			// Let Build resolve the root first, then fail mid-traversal.
			tree, err := func() (*types.DependencyTree, error) {
				b := NewBuilder(m)
				root, gerr := m.GetEntity(context.Background(), "a")
				require.NoError(t, gerr)
				require.NotNil(t, root)
				m.failOn = method
				return b.Build(context.Background(), "a")
			}()

			require.Error(t, err)
			assert.Nil(t, tree, "no partial tree on store failure")
		})
	}
}

func TestBuildCancellation(t *testing.T) {
	m := newMockStore()
	m.addEntity("a")
	m.addEntity("b")
	m.addEdge("a", "b", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := NewBuilder(m).Build(ctx, "a")
	require.Error(t, err)
	assert.Nil(t, tree)
}
