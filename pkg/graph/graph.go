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

package graph

import (
	"sort"

	gwcel "github.com/groundwork-run/groundwork/pkg/cel"
	"github.com/groundwork-run/groundwork/pkg/graph/dag"
	"github.com/groundwork-run/groundwork/pkg/graph/variable"
)

// OutputKind discriminates how an output binding produces its value.
type OutputKind int

const (
	// OutputKindField binds an output to a single node output field.
	OutputKindField OutputKind = iota
	// OutputKindLiteral binds an output to a constant value.
	OutputKindLiteral
	// OutputKindTemplate binds an output to a value containing expressions,
	// e.g. a list of subnet id references.
	OutputKindTemplate
)

// OutputBinding describes one named output of a graph. Outputs form the
// cross-stack contract consumers resolve through stack references.
type OutputBinding struct {
	Name string
	Kind OutputKind

	// NodeID and FieldPath are set for OutputKindField.
	NodeID    string
	FieldPath string

	// Value is set for OutputKindLiteral.
	Value interface{}

	// Template is set for OutputKindTemplate: any value whose strings may
	// contain ${...} expressions. Fields holds the parsed expression fields,
	// with paths rooted at TemplateRootKey.
	Template interface{}
	Fields   []*variable.NodeField

	// Expression is the compiled access expression for OutputKindField.
	Expression *gwcel.Expression

	// References lists the node IDs this binding depends on. A binding whose
	// referenced nodes never resolve (e.g. they belong to an excluded
	// subsystem) is omitted from the run's outputs.
	References []string
}

// TemplateRootKey is the synthetic key template bindings are rooted under
// when parsed and resolved.
const TemplateRootKey = "value"

// Graph is a finalized resource graph: immutable node specs, their
// dependency DAG, and the graph's output contract. Produced by
// Builder.Finalize and safe for concurrent reads.
type Graph struct {
	// Name identifies the graph, e.g. the deployable unit name.
	Name string

	// DAG is the directed acyclic graph of node dependencies.
	DAG *dag.DirectedAcyclicGraph[string]

	// Nodes maps node ID to immutable node spec.
	Nodes map[string]*Node

	// TopologicalOrder is the dependency-respecting order node IDs are
	// processed in. Deterministic for a given set of declarations.
	TopologicalOrder []string

	// Outputs holds the graph's output bindings in declaration order.
	Outputs []*OutputBinding

	// Subsystems maps subsystem name to whether it was included in this
	// composition.
	Subsystems map[string]bool
}

// NodeIDs returns all node IDs in declaration order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return g.Nodes[ids[i]].Meta.Index < g.Nodes[ids[j]].Meta.Index
	})
	return ids
}
