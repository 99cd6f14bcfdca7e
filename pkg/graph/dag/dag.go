// Copyright 2025 The Groundwork Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dag provides a directed acyclic graph with deterministic
// topological ordering. Vertices carry an insertion order that is used to
// break ties, so two graphs built from the same declarations always sort
// identically.
package dag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Vertex represents a single node in the graph.
type Vertex[T cmp.Ordered] struct {
	// ID is the unique identifier of the vertex.
	ID T

	// Order is the position of the vertex in the original declaration list.
	// Used to preserve the source ordering among independent vertices.
	Order int

	// DependsOn is the set of vertices this vertex depends on.
	DependsOn map[T]struct{}
}

// DirectedAcyclicGraph holds the vertex set. Edges live on the vertices.
type DirectedAcyclicGraph[T cmp.Ordered] struct {
	// Vertices maps vertex ID to vertex.
	Vertices map[T]*Vertex[T]
}

// NewDirectedAcyclicGraph creates a new empty graph.
func NewDirectedAcyclicGraph[T cmp.Ordered]() *DirectedAcyclicGraph[T] {
	return &DirectedAcyclicGraph[T]{
		Vertices: make(map[T]*Vertex[T]),
	}
}

// CycleError is returned when an operation would introduce, or discovers, a
// dependency cycle. Cycle holds one representative cycle path.
type CycleError[T cmp.Ordered] struct {
	Cycle []T
}

func (e *CycleError[T]) Error() string {
	return fmt.Sprintf("graph contains a cycle: %v", e.Cycle)
}

// AsCycleError returns the CycleError in err's chain, or nil.
func AsCycleError[T cmp.Ordered](err error) *CycleError[T] {
	var ce *CycleError[T]
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// AddVertex adds a vertex with the given insertion order. Adding a vertex
// with an ID that already exists is an error.
func (d *DirectedAcyclicGraph[T]) AddVertex(id T, order int) error {
	if _, exists := d.Vertices[id]; exists {
		return fmt.Errorf("vertex %v already exists in the graph", id)
	}
	d.Vertices[id] = &Vertex[T]{
		ID:        id,
		Order:     order,
		DependsOn: make(map[T]struct{}),
	}
	return nil
}

// AddDependencies records that `from` depends on each of `dependencies`.
// Self references, unknown vertices and edges that would close a cycle are
// rejected; on rejection the graph is left unchanged.
func (d *DirectedAcyclicGraph[T]) AddDependencies(from T, dependencies []T) error {
	fromVertex, ok := d.Vertices[from]
	if !ok {
		return fmt.Errorf("vertex %v not found in the graph", from)
	}

	for _, dep := range dependencies {
		if dep == from {
			return fmt.Errorf("vertex %v cannot depend on itself", from)
		}
		if _, ok := d.Vertices[dep]; !ok {
			return fmt.Errorf("dependency %v of vertex %v not found in the graph", dep, from)
		}
	}

	added := make([]T, 0, len(dependencies))
	for _, dep := range dependencies {
		if _, exists := fromVertex.DependsOn[dep]; exists {
			continue
		}
		fromVertex.DependsOn[dep] = struct{}{}
		added = append(added, dep)
	}

	if cyclic, cycle := d.hasCycle(); cyclic {
		// Roll back only the edges this call introduced.
		for _, dep := range added {
			delete(fromVertex.DependsOn, dep)
		}
		return &CycleError[T]{Cycle: cycle}
	}
	return nil
}

// hasCycle performs a depth first search over all vertices and reports the
// first cycle found, as a path of vertex IDs.
func (d *DirectedAcyclicGraph[T]) hasCycle() (bool, []T) {
	const (
		white = iota // unvisited
		grey         // on the current DFS path
		black        // fully explored
	)

	colors := make(map[T]int, len(d.Vertices))
	var path []T
	var cycle []T

	var visit func(id T) bool
	visit = func(id T) bool {
		colors[id] = grey
		path = append(path, id)

		for dep := range d.Vertices[id].DependsOn {
			switch colors[dep] {
			case grey:
				// Found a back edge; extract the cycle from the path.
				start := slices.Index(path, dep)
				cycle = append(slices.Clone(path[start:]), dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		colors[id] = black
		return false
	}

	ids := d.sortedIDs()
	for _, id := range ids {
		if colors[id] == white {
			if visit(id) {
				return true, cycle
			}
		}
	}
	return false, nil
}

// TopologicalSort returns the vertex IDs in dependency order. The sort
// sweeps the vertices in insertion order, emitting every vertex whose
// dependencies have already been emitted (including earlier in the same
// sweep), and repeats until done. This keeps independent vertices in their
// declaration order, which makes the result stable across runs.
func (d *DirectedAcyclicGraph[T]) TopologicalSort() ([]T, error) {
	if cyclic, cycle := d.hasCycle(); cyclic {
		return nil, &CycleError[T]{Cycle: cycle}
	}

	ids := d.sortedByOrder()
	emitted := make(map[T]struct{}, len(ids))
	order := make([]T, 0, len(ids))

	for len(order) < len(ids) {
		progressed := false
		for _, id := range ids {
			if _, done := emitted[id]; done {
				continue
			}
			ready := true
			for dep := range d.Vertices[id].DependsOn {
				if _, done := emitted[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				emitted[id] = struct{}{}
				order = append(order, id)
				progressed = true
			}
		}
		if !progressed {
			// Unreachable after the cycle check above, kept as a guard.
			return nil, &CycleError[T]{}
		}
	}
	return order, nil
}

// TopologicalSortLevels groups vertices into levels where every vertex's
// dependencies live in strictly earlier levels. Vertices within a level keep
// their insertion order.
func (d *DirectedAcyclicGraph[T]) TopologicalSortLevels() ([][]T, error) {
	if cyclic, cycle := d.hasCycle(); cyclic {
		return nil, &CycleError[T]{Cycle: cycle}
	}

	assigned := make(map[T]struct{}, len(d.Vertices))
	var levels [][]T

	for len(assigned) < len(d.Vertices) {
		var level []T
		for _, id := range d.sortedByOrder() {
			if _, done := assigned[id]; done {
				continue
			}
			ready := true
			for dep := range d.Vertices[id].DependsOn {
				if _, done := assigned[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, id)
			}
		}
		for _, id := range level {
			assigned[id] = struct{}{}
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// sortedByOrder returns all vertex IDs sorted by insertion order.
func (d *DirectedAcyclicGraph[T]) sortedByOrder() []T {
	ids := make([]T, 0, len(d.Vertices))
	for id := range d.Vertices {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b T) int {
		return cmp.Compare(d.Vertices[a].Order, d.Vertices[b].Order)
	})
	return ids
}

// sortedIDs returns all vertex IDs in their natural order, for deterministic
// iteration.
func (d *DirectedAcyclicGraph[T]) sortedIDs() []T {
	ids := make([]T, 0, len(d.Vertices))
	for id := range d.Vertices {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
