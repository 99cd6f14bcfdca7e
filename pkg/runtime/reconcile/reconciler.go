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

// Package reconcile drives a graph run: it walks the dependency DAG,
// resolves each node's inputs through the runtime, hands them to a
// Reconciler, and feeds the reported outputs back so downstream nodes can
// resolve.
package reconcile

import (
	"context"
	"fmt"

	"github.com/groundwork-run/groundwork/pkg/graph"
)

// Reconciler takes a node's fully resolved inputs and settles the backing
// resource, returning its output fields. Implementations talk to a provider
// (or, for previews, synthesize outputs offline).
type Reconciler interface {
	// Reconcile creates or updates the resource for the node and returns its
	// outputs. Called at most once per node per run, after every dependency
	// has settled.
	Reconcile(ctx context.Context, node *graph.Node, inputs map[string]interface{}) (map[string]interface{}, error)

	// Delete tears the resource down. Called in reverse dependency order.
	Delete(ctx context.Context, node *graph.Node) error
}

// ReconciliationError wraps a failure while settling a single node.
type ReconciliationError struct {
	NodeID string
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciling node %q: %v", e.NodeID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
