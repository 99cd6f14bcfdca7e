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

package reconcile

import (
	"context"

	"github.com/groundwork-run/groundwork/pkg/graph"
)

// OfflineReconciler settles nodes without touching any provider. Output
// fields that exist in the resolved inputs are echoed back; everything else
// gets a "nodeID.field" placeholder so downstream string templates stay
// readable in previews. Used by preview and by end-to-end tests.
type OfflineReconciler struct {
	registry *graph.TypeRegistry
}

// NewOfflineReconciler creates an offline reconciler that synthesizes the
// output fields the registry declares for each node's type.
func NewOfflineReconciler(registry *graph.TypeRegistry) *OfflineReconciler {
	return &OfflineReconciler{registry: registry}
}

func (r *OfflineReconciler) Reconcile(_ context.Context, node *graph.Node, inputs map[string]interface{}) (map[string]interface{}, error) {
	fields := []string{"id"}
	if spec, ok := r.registry.Lookup(node.Meta.Type); ok {
		fields = spec.OutputFields
	}

	outputs := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		if value, ok := inputs[field]; ok {
			outputs[field] = value
			continue
		}
		outputs[field] = node.Meta.ID + "." + field
	}
	return outputs, nil
}

func (r *OfflineReconciler) Delete(_ context.Context, _ *graph.Node) error {
	return nil
}
