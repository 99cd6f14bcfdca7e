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

// Package runtime resolves a finalized graph's expressions against live
// values during a run. Each node's input template is resolved once every
// node it depends on has reported outputs; the graph's output bindings are
// evaluated at the end of the run from whatever settled.
package runtime

import (
	"fmt"
	"sync"

	"github.com/groundwork-run/groundwork/pkg/graph"
	"github.com/groundwork-run/groundwork/pkg/graph/variable"
	"github.com/groundwork-run/groundwork/pkg/runtime/resolver"
)

// GraphState tracks a run through its lifecycle. Reconciling is owned by
// the reconciler; Failed is terminal for the run but not the stack — the
// next run starts fresh with the prior snapshot as its diff baseline.
type GraphState string

const (
	GraphStateFinalized   GraphState = "Finalized"
	GraphStateSubmitted   GraphState = "Submitted"
	GraphStateReconciling GraphState = "Reconciling"
	GraphStateSettled     GraphState = "Settled"
	GraphStateFailed      GraphState = "Failed"
)

// Variables carries the values bound to the builtin expression variables.
type Variables struct {
	// Config holds the deployable unit's configuration values.
	Config map[string]interface{}
	// Platform holds resolved platform outputs; nil for platform graphs.
	Platform map[string]interface{}
}

// Runtime is the per-run evaluation state for one graph. Safe for
// concurrent use: the reconciler resolves independent nodes from multiple
// goroutines.
type Runtime struct {
	graph *graph.Graph

	// base is the evaluation context shared by every expression: config
	// plus platform. Node outputs are layered on top per evaluation.
	base map[string]interface{}

	mu             sync.RWMutex
	state          GraphState
	outputs        map[string]map[string]interface{}
	resolvedInputs map[string]map[string]interface{}
}

// New creates a Runtime for a finalized graph.
func New(g *graph.Graph, vars Variables) *Runtime {
	base := map[string]interface{}{
		graph.ConfigVarName:   map[string]interface{}{},
		graph.PlatformVarName: map[string]interface{}{},
	}
	if vars.Config != nil {
		base[graph.ConfigVarName] = vars.Config
	}
	if vars.Platform != nil {
		base[graph.PlatformVarName] = vars.Platform
	}

	return &Runtime{
		graph:          g,
		base:           base,
		state:          GraphStateFinalized,
		outputs:        make(map[string]map[string]interface{}),
		resolvedInputs: make(map[string]map[string]interface{}),
	}
}

// Graph returns the underlying graph.
func (rt *Runtime) Graph() *graph.Graph {
	return rt.graph
}

// State returns the current run state.
func (rt *Runtime) State() GraphState {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.state
}

// TopologicalOrder returns the graph's node processing order.
func (rt *Runtime) TopologicalOrder() []string {
	return rt.graph.TopologicalOrder
}

// Submit transitions Finalized -> Submitted, handing the run to the
// reconciler.
func (rt *Runtime) Submit() error {
	return rt.transition(GraphStateFinalized, GraphStateSubmitted)
}

// Begin transitions Submitted -> Reconciling.
func (rt *Runtime) Begin() error {
	return rt.transition(GraphStateSubmitted, GraphStateReconciling)
}

// Complete transitions Reconciling -> Settled or Failed.
func (rt *Runtime) Complete(failed bool) error {
	target := GraphStateSettled
	if failed {
		target = GraphStateFailed
	}
	return rt.transition(GraphStateReconciling, target)
}

func (rt *Runtime) transition(from, to GraphState) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.state != from {
		return fmt.Errorf("invalid state transition %s -> %s (current state %s)", from, to, rt.state)
	}
	rt.state = to
	return nil
}

// ResolvedInputs evaluates and substitutes every expression in the node's
// input template. Returns ErrOutputPending (wrapped) when a dependency has
// not reported outputs yet. The result is cached: a node's inputs are
// resolved exactly once per run.
func (rt *Runtime) ResolvedInputs(id string) (map[string]interface{}, error) {
	node, ok := rt.graph.Nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", id)
	}

	rt.mu.RLock()
	if cached, ok := rt.resolvedInputs[id]; ok {
		rt.mu.RUnlock()
		return cached, nil
	}
	evalCtx, err := rt.evalContextLocked(node.Meta.Dependencies)
	rt.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", id, err)
	}

	inputs := node.DeepCopy().Inputs

	data := map[string]interface{}{}
	for _, field := range node.Fields {
		for _, expr := range field.Expressions {
			value, err := expr.Eval(evalCtx)
			if err != nil {
				if isCELOutputPending(err) {
					return nil, fmt.Errorf("node %q: %w: %v", id, ErrOutputPending, err)
				}
				return nil, fmt.Errorf("node %q: %w", id, err)
			}
			data[expr.Original] = value
		}
	}

	r := resolver.NewResolver(inputs, data)
	summary := r.Resolve(fieldDescriptors(node))
	if len(summary.Errors) > 0 {
		return nil, fmt.Errorf("node %q: resolution failed: %v", id, summary.Errors)
	}

	rt.mu.Lock()
	rt.resolvedInputs[id] = inputs
	rt.mu.Unlock()

	return inputs, nil
}

// SetOutputs records a node's provider-reported outputs, unblocking
// expressions that reference it.
func (rt *Runtime) SetOutputs(id string, outputs map[string]interface{}) error {
	if _, ok := rt.graph.Nodes[id]; !ok {
		return fmt.Errorf("unknown node %q", id)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.outputs[id] = outputs
	return nil
}

// NodeOutputs returns a node's recorded outputs, if any.
func (rt *Runtime) NodeOutputs(id string) (map[string]interface{}, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	outputs, ok := rt.outputs[id]
	return outputs, ok
}

// Synchronize reports whether reconciliation work remains: true while any
// node has not reported outputs yet.
func (rt *Runtime) Synchronize() (bool, error) {
	return !rt.Settled(), nil
}

// Settled reports whether every node has recorded outputs.
func (rt *Runtime) Settled() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.outputs) == len(rt.graph.Nodes)
}

// Outputs evaluates the graph's output bindings against the nodes that
// settled. Bindings referencing nodes that never resolved are omitted
// entirely, so outputs of an excluded or failed subsystem are absent from
// the snapshot rather than null.
func (rt *Runtime) Outputs() (map[string]interface{}, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	results := make(map[string]interface{}, len(rt.graph.Outputs))

	for _, binding := range rt.graph.Outputs {
		if !rt.referencesResolvedLocked(binding.References) {
			continue
		}

		switch binding.Kind {
		case graph.OutputKindLiteral:
			results[binding.Name] = binding.Value

		case graph.OutputKindField:
			evalCtx, err := rt.evalContextLocked(binding.References)
			if err != nil {
				continue
			}
			value, err := binding.Expression.Eval(evalCtx)
			if err != nil {
				if isCELOutputPending(err) {
					continue
				}
				return nil, fmt.Errorf("output %q: %w", binding.Name, err)
			}
			results[binding.Name] = value

		case graph.OutputKindTemplate:
			value, err := rt.evalTemplateLocked(binding)
			if err != nil {
				if IsOutputPending(err) {
					continue
				}
				return nil, fmt.Errorf("output %q: %w", binding.Name, err)
			}
			results[binding.Name] = value
		}
	}

	return results, nil
}

func (rt *Runtime) evalTemplateLocked(binding *graph.OutputBinding) (interface{}, error) {
	evalCtx, err := rt.evalContextLocked(binding.References)
	if err != nil {
		return nil, err
	}

	wrapper := map[string]interface{}{
		graph.TemplateRootKey: deepCopy(binding.Template),
	}

	data := map[string]interface{}{}
	for _, field := range binding.Fields {
		for _, expr := range field.Expressions {
			value, err := expr.Eval(evalCtx)
			if err != nil {
				if isCELOutputPending(err) {
					return nil, fmt.Errorf("%w: %v", ErrOutputPending, err)
				}
				return nil, err
			}
			data[expr.Original] = value
		}
	}

	r := resolver.NewResolver(wrapper, data)
	summary := r.Resolve(bindingDescriptors(binding))
	if len(summary.Errors) > 0 {
		return nil, fmt.Errorf("template resolution failed: %v", summary.Errors)
	}

	return wrapper[graph.TemplateRootKey], nil
}

// evalContextLocked builds the CEL evaluation context for the given
// dependencies. Returns ErrOutputPending when any dependency has not
// reported outputs.
func (rt *Runtime) evalContextLocked(deps []string) (map[string]interface{}, error) {
	evalCtx := make(map[string]interface{}, len(deps)+len(rt.base))
	for k, v := range rt.base {
		evalCtx[k] = v
	}
	for _, dep := range deps {
		outputs, ok := rt.outputs[dep]
		if !ok {
			return nil, fmt.Errorf("%w: node %q has not reported outputs", ErrOutputPending, dep)
		}
		evalCtx[dep] = outputs
	}
	return evalCtx, nil
}

// referencesResolvedLocked reports whether every referenced node has
// recorded outputs.
func (rt *Runtime) referencesResolvedLocked(refs []string) bool {
	for _, ref := range refs {
		if _, ok := rt.outputs[ref]; !ok {
			return false
		}
	}
	return true
}

func fieldDescriptors(node *graph.Node) []variable.FieldDescriptor {
	descriptors := make([]variable.FieldDescriptor, 0, len(node.Fields))
	for _, field := range node.Fields {
		descriptors = append(descriptors, field.FieldDescriptor)
	}
	return descriptors
}

func bindingDescriptors(binding *graph.OutputBinding) []variable.FieldDescriptor {
	descriptors := make([]variable.FieldDescriptor, 0, len(binding.Fields))
	for _, field := range binding.Fields {
		descriptors = append(descriptors, field.FieldDescriptor)
	}
	return descriptors
}

func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(val))
		for k, item := range val {
			cp[k] = deepCopy(item)
		}
		return cp
	case []interface{}:
		cp := make([]interface{}, len(val))
		for i, item := range val {
			cp[i] = deepCopy(item)
		}
		return cp
	default:
		return v
	}
}
