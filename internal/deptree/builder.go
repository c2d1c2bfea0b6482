// Package deptree builds bounded-depth, cycle-safe dependency trees.
//
// A tree build walks the dependency edge graph in both directions from a
// root entity: outgoing edges become the Dependencies side, incoming edges
// the Dependents side. Each visited neighbor is annotated with its resolved
// latest status. The edge graph is a general directed graph (cycles and
// parallel edges are allowed), so the traversal carries a per-path visited
// set and a hard depth cap.
//
// The visited set is copied on descent rather than shared and backtracked:
// the same entity may legitimately appear in two independent branches, but
// never twice on one root-to-leaf path.
package deptree

import (
	"context"
	"fmt"

	"github.com/pulse-ops/statusgraph/pkg/types"
)

// DefaultMaxDepth bounds recursion. Levels run 0..DefaultMaxDepth-1; nodes at
// the last level keep empty children. This bounds worst-case work and payload
// size regardless of graph density.
const DefaultMaxDepth = 5

// Store is the persistence surface the builder needs. *store.Store satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	// GetEntity returns a live entity or (nil, nil) when absent/soft-deleted.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)

	// OutgoingDependencies returns live edges from entityID, ord ascending.
	OutgoingDependencies(ctx context.Context, entityID string) ([]types.EntityDependency, error)

	// IncomingDependencies returns live edges into entityID, ord ascending.
	IncomingDependencies(ctx context.Context, entityID string) ([]types.EntityDependency, error)

	// GetLatestStatus returns the newest non-deleted status row or (nil, nil).
	GetLatestStatus(ctx context.Context, entityID string) (*types.EntityStatusHistory, error)
}

// ErrEntityNotFound is returned when the requested root entity does not
// resolve to a live entity.
var ErrEntityNotFound = fmt.Errorf("entity not found")

// Builder constructs dependency trees against a Store.
type Builder struct {
	store    Store
	maxDepth int
}

// NewBuilder creates a builder with the default depth cap.
func NewBuilder(store Store) *Builder {
	return &Builder{store: store, maxDepth: DefaultMaxDepth}
}

// NewBuilderWithDepth creates a builder with a custom depth cap.
// Values < 1 fall back to the default.
func NewBuilderWithDepth(store Store, maxDepth int) *Builder {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Builder{store: store, maxDepth: maxDepth}
}

// direction selects which edge set a traversal follows.
type direction int

const (
	outgoing direction = iota // what the entity depends on
	incoming                  // what depends on the entity
)

// Build assembles the dependency tree rooted at entityID.
//
// It fails with ErrEntityNotFound when the root is absent or soft-deleted.
// Any store error aborts the whole build: a tree response is all-or-nothing,
// never a partially populated tree returned as complete. Cycles and depth
// overruns are not errors; they truncate silently.
func (b *Builder) Build(ctx context.Context, entityID string) (*types.DependencyTree, error) {
	root, err := b.store.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrEntityNotFound
	}

	latest, err := b.store.GetLatestStatus(ctx, entityID)
	if err != nil {
		return nil, err
	}

	tree := &types.DependencyTree{
		EntityID:      root.ID,
		EntityName:    root.Name,
		EntityType:    root.EntityType,
		CurrentStatus: types.StatusUnknown,
		Dependencies:  []*types.DependencyTreeNode{},
		Dependents:    []*types.DependencyTreeNode{},
	}
	if latest != nil {
		tree.CurrentStatus = latest.Status
	}

	tree.Dependencies, err = b.traverse(ctx, entityID, outgoing, map[string]bool{}, 0)
	if err != nil {
		return nil, err
	}

	tree.Dependents, err = b.traverse(ctx, entityID, incoming, map[string]bool{}, 0)
	if err != nil {
		return nil, err
	}

	return tree, nil
}

// traverse expands one node's edges in the given direction.
//
// visited holds the ids already on the current root-to-node path; the node's
// own id is added to a copy so sibling branches do not block each other.
func (b *Builder) traverse(ctx context.Context, entityID string, dir direction, visited map[string]bool, level int) ([]*types.DependencyTreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Cycle guard: revisiting an ancestor ends this path.
	if visited[entityID] {
		return []*types.DependencyTreeNode{}, nil
	}

	path := make(map[string]bool, len(visited)+1)
	for id := range visited {
		path[id] = true
	}
	path[entityID] = true

	var edges []types.EntityDependency
	var err error
	if dir == outgoing {
		edges, err = b.store.OutgoingDependencies(ctx, entityID)
	} else {
		edges, err = b.store.IncomingDependencies(ctx, entityID)
	}
	if err != nil {
		return nil, err
	}

	nodes := make([]*types.DependencyTreeNode, 0, len(edges))
	for _, edge := range edges {
		neighborID := edge.DependsOnEntityID
		if dir == incoming {
			neighborID = edge.EntityID
		}

		// An edge back to an ancestor on this path is a cycle; omit it
		// rather than re-expanding the ancestor.
		if path[neighborID] {
			continue
		}

		neighbor, err := b.store.GetEntity(ctx, neighborID)
		if err != nil {
			return nil, err
		}
		if neighbor == nil {
			// Dangling edge: far entity missing or soft-deleted. Skip silently.
			continue
		}

		latest, err := b.store.GetLatestStatus(ctx, neighborID)
		if err != nil {
			return nil, err
		}

		node := &types.DependencyTreeNode{
			EntityID:      neighbor.ID,
			EntityName:    neighbor.Name,
			EntityType:    neighbor.EntityType,
			CurrentStatus: types.StatusUnknown,
			IsCritical:    edge.IsCritical,
			IsActive:      edge.IsActive,
			Description:   edge.Description,
			Order:         edge.Order,
			Level:         level,
			Children:      []*types.DependencyTreeNode{},
		}
		if latest != nil {
			node.CurrentStatus = latest.Status
		}

		if level < b.maxDepth-1 {
			node.Children, err = b.traverse(ctx, neighborID, dir, path, level+1)
			if err != nil {
				return nil, err
			}
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}
