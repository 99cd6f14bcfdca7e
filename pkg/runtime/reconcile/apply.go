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
	"sync"
	"time"

	"github.com/groundwork-run/groundwork/pkg/graph/walker"
	"github.com/groundwork-run/groundwork/pkg/runtime"
)

// Status is the outcome of one node within a run.
type Status string

const (
	// StatusSettled means the node resolved, reconciled, and reported outputs.
	StatusSettled Status = "Settled"
	// StatusFailed means resolution or reconciliation returned an error.
	StatusFailed Status = "Failed"
	// StatusSkipped means an upstream dependency failed, so the node was
	// never attempted.
	StatusSkipped Status = "Skipped"
)

// Result summarizes a run over the whole graph.
type Result struct {
	// Statuses maps node ID to its outcome.
	Statuses map[string]Status
	// Errors maps node ID to the error that failed it. Skipped nodes do not
	// appear here.
	Errors map[string]error
}

// Failed reports whether any node failed.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// Options configures a run.
type Options struct {
	// Parallelism bounds how many nodes reconcile concurrently. <= 0 means
	// one worker per CPU.
	Parallelism int
	// StopOnError aborts the whole walk on the first failure instead of
	// continuing with independent nodes.
	StopOnError bool
}

// Apply drives a full run: Submit, walk the DAG reconciling each node as its
// dependencies settle, then Complete. Nodes downstream of a failure are
// skipped; the run is marked failed if any node failed.
func Apply(ctx context.Context, rt *runtime.Runtime, rec Reconciler, opts Options) (*Result, error) {
	if err := rt.Submit(); err != nil {
		return nil, err
	}
	if err := rt.Begin(); err != nil {
		return nil, err
	}

	g := rt.Graph()

	walkErrors := walker.Walk(ctx, g.DAG, func(ctx context.Context, id string) error {
		node := g.Nodes[id]
		start := time.Now()

		inputs, err := rt.ResolvedInputs(id)
		if err != nil {
			Metrics.ObserveNode(node.Meta.Type, time.Since(start), err)
			return &ReconciliationError{NodeID: id, Err: err}
		}

		outputs, err := rec.Reconcile(ctx, node, inputs)
		Metrics.ObserveNode(node.Meta.Type, time.Since(start), err)
		if err != nil {
			return &ReconciliationError{NodeID: id, Err: err}
		}

		return rt.SetOutputs(id, outputs)
	}, walker.Options{Parallelism: opts.Parallelism, StopOnError: opts.StopOnError})

	result := collectResult(rt, walkErrors)

	if err := rt.Complete(result.Failed()); err != nil {
		return nil, err
	}
	return result, nil
}

// Destroy walks the DAG bottom-up, deleting each node's resource before the
// resources it depends on. The runtime's state machine is not involved:
// teardown operates on the graph shape alone.
func Destroy(ctx context.Context, rt *runtime.Runtime, rec Reconciler, opts Options) (*Result, error) {
	g := rt.Graph()

	var mu sync.Mutex
	deleted := make(map[string]bool, len(g.Nodes))

	walkErrors := walker.Walk(ctx, g.DAG, func(ctx context.Context, id string) error {
		node := g.Nodes[id]
		start := time.Now()
		err := rec.Delete(ctx, node)
		Metrics.ObserveNode(node.Meta.Type, time.Since(start), err)
		if err != nil {
			return &ReconciliationError{NodeID: id, Err: err}
		}
		mu.Lock()
		deleted[id] = true
		mu.Unlock()
		return nil
	}, walker.Options{Parallelism: opts.Parallelism, StopOnError: opts.StopOnError, Reverse: true})

	result := &Result{
		Statuses: make(map[string]Status, len(g.Nodes)),
		Errors:   walkErrors,
	}
	for id := range g.Nodes {
		switch {
		case walkErrors[id] != nil:
			result.Statuses[id] = StatusFailed
		case deleted[id]:
			result.Statuses[id] = StatusSettled
		default:
			result.Statuses[id] = StatusSkipped
		}
	}
	return result, nil
}

func collectResult(rt *runtime.Runtime, walkErrors map[string]error) *Result {
	g := rt.Graph()
	result := &Result{
		Statuses: make(map[string]Status, len(g.Nodes)),
		Errors:   walkErrors,
	}
	for id := range g.Nodes {
		switch {
		case walkErrors[id] != nil:
			result.Statuses[id] = StatusFailed
		default:
			if _, ok := rt.NodeOutputs(id); ok {
				result.Statuses[id] = StatusSettled
			} else {
				result.Statuses[id] = StatusSkipped
			}
		}
	}
	for _, status := range result.Statuses {
		Metrics.CountNode(string(status))
	}
	return result
}
