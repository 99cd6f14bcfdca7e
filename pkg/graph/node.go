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
	"slices"

	"github.com/groundwork-run/groundwork/pkg/graph/variable"
)

// Well-known variable identifiers available to every CEL expression.
const (
	// ConfigVarName exposes the deployable unit's configuration values.
	ConfigVarName = "config"
	// PlatformVarName exposes resolved platform stack outputs to app graphs.
	PlatformVarName = "platform"
)

// NodeMeta contains immutable metadata about a node.
type NodeMeta struct {
	// ID is the unique identifier of the node within the graph. It is also
	// the CEL variable other nodes use to reference its outputs, so it must
	// be a valid CEL identifier (no hyphens).
	ID string
	// Index is the position of this node in declaration order. Used to keep
	// the topological sort stable across runs.
	Index int
	// Type is the provider type tag, e.g. "aws:ec2:Vpc".
	Type string
	// Subsystem names the conditional subsystem this node was declared in,
	// or "" for the always-on core.
	Subsystem string
	// Dependencies lists the IDs of nodes this node depends on: the union of
	// explicitly declared dependencies and those inferred from expressions.
	Dependencies []string
}

// Node is the immutable node spec produced by the builder. It holds the raw
// input template with expressions intact plus the parsed expression fields
// the runtime resolves before submission.
type Node struct {
	// Meta contains identification metadata.
	Meta NodeMeta

	// Inputs is the input template with CEL expressions intact.
	Inputs map[string]interface{}

	// Fields holds the CEL expression fields found in the template.
	Fields []*variable.NodeField
}

// DeepCopy creates a deep copy of the Node. Use this when a runtime needs a
// per-run clone to avoid sharing slices and maps across runs.
func (n *Node) DeepCopy() *Node {
	if n == nil {
		return nil
	}

	cp := &Node{
		Meta: NodeMeta{
			ID:           n.Meta.ID,
			Index:        n.Meta.Index,
			Type:         n.Meta.Type,
			Subsystem:    n.Meta.Subsystem,
			Dependencies: slices.Clone(n.Meta.Dependencies),
		},
		Inputs: deepCopyValue(n.Inputs).(map[string]interface{}),
	}

	if n.Fields != nil {
		cp.Fields = make([]*variable.NodeField, len(n.Fields))
		for i, f := range n.Fields {
			copyField := *f
			copyField.Expressions = slices.Clone(f.Expressions)
			cp.Fields[i] = &copyField
		}
	}

	return cp
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(val))
		for k, item := range val {
			cp[k] = deepCopyValue(item)
		}
		return cp
	case []interface{}:
		cp := make([]interface{}, len(val))
		for i, item := range val {
			cp[i] = deepCopyValue(item)
		}
		return cp
	default:
		return v
	}
}
