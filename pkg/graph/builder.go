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

// Package graph builds declarative resource graphs. Declarations register
// nodes whose input templates may reference other nodes' outputs through
// ${...} CEL expressions; the builder parses the expressions, infers the
// dependency edges they imply, rejects cycles and unknown references, and
// produces an immutable Graph with a deterministic topological order.
package graph

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/samber/lo"

	gwcel "github.com/groundwork-run/groundwork/pkg/cel"
	"github.com/groundwork-run/groundwork/pkg/cel/ast"
	"github.com/groundwork-run/groundwork/pkg/graph/dag"
	"github.com/groundwork-run/groundwork/pkg/graph/parser"
	"github.com/groundwork-run/groundwork/pkg/graph/variable"
)

// nodeIDPattern constrains node IDs to valid CEL identifiers, since every
// node ID doubles as a CEL variable name.
var nodeIDPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Builder accumulates declarations and produces an immutable Graph.
//
// Methods record errors instead of returning them so compositions read as
// straight-line declarations; Finalize reports everything at once. A Builder
// is single-use: after Finalize it is sealed.
type Builder struct {
	name     string
	registry *TypeRegistry

	nodes     map[string]*Node
	nodeOrder []string

	outputs     []*OutputBinding
	outputNames map[string]struct{}

	subsystems      map[string]bool
	activeSubsystem string

	errs      []error
	finalized bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTypeRegistry sets the registry used to validate output field
// references. Without a registry every field reference is accepted.
func WithTypeRegistry(r *TypeRegistry) BuilderOption {
	return func(b *Builder) { b.registry = r }
}

// NewBuilder creates a Builder for a graph with the given name.
func NewBuilder(name string, opts ...BuilderOption) *Builder {
	b := &Builder{
		name:        name,
		nodes:       make(map[string]*Node),
		outputNames: make(map[string]struct{}),
		subsystems:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Declare registers a node with the given ID, provider type tag, and input
// template. Strings in the template may contain ${...} expressions
// referencing other node IDs, "config", or "platform". Additional dependency
// edges that expressions cannot express (e.g. ordering-only dependencies)
// are declared via dependsOn.
func (b *Builder) Declare(id, typeTag string, inputs map[string]interface{}, dependsOn ...string) *Builder {
	if b.finalized {
		b.recordf("declare", "graph %q is finalized", b.name)
		return b
	}
	if !nodeIDPattern.MatchString(id) {
		b.recordf("declare", "node ID %q is not a valid identifier", id)
		return b
	}
	if id == ConfigVarName || id == PlatformVarName {
		b.recordf("declare", "node ID %q is reserved", id)
		return b
	}
	if _, exists := b.nodes[id]; exists {
		b.record("declare", &DuplicateNameError{Kind: "node", Name: id})
		return b
	}

	node := &Node{
		Meta: NodeMeta{
			ID:           id,
			Index:        len(b.nodeOrder),
			Type:         typeTag,
			Subsystem:    b.activeSubsystem,
			Dependencies: dependsOn,
		},
	}
	if inputs != nil {
		node.Inputs = deepCopyValue(inputs).(map[string]interface{})
	} else {
		node.Inputs = map[string]interface{}{}
	}

	b.nodes[id] = node
	b.nodeOrder = append(b.nodeOrder, id)
	return b
}

// Expose binds a named output to a single output field of a node.
func (b *Builder) Expose(name, nodeID, fieldPath string) *Builder {
	if !b.addOutputName(name) {
		return b
	}
	b.outputs = append(b.outputs, &OutputBinding{
		Name:      name,
		Kind:      OutputKindField,
		NodeID:    nodeID,
		FieldPath: fieldPath,
	})
	return b
}

// ExposeValue binds a named output to a constant value.
func (b *Builder) ExposeValue(name string, value interface{}) *Builder {
	if !b.addOutputName(name) {
		return b
	}
	b.outputs = append(b.outputs, &OutputBinding{
		Name:  name,
		Kind:  OutputKindLiteral,
		Value: value,
	})
	return b
}

// ExposeTemplate binds a named output to a value whose strings may contain
// ${...} expressions, e.g. a list of subnet id references:
//
//	b.ExposeTemplate("publicSubnetIds", []interface{}{
//		"${publicSubnet0.id}",
//		"${publicSubnet1.id}",
//	})
func (b *Builder) ExposeTemplate(name string, template interface{}) *Builder {
	if !b.addOutputName(name) {
		return b
	}
	b.outputs = append(b.outputs, &OutputBinding{
		Name:     name,
		Kind:     OutputKindTemplate,
		Template: deepCopyValue(template),
	})
	return b
}

func (b *Builder) addOutputName(name string) bool {
	if b.finalized {
		b.recordf("expose", "graph %q is finalized", b.name)
		return false
	}
	if name == "" {
		b.recordf("expose", "output name must not be empty")
		return false
	}
	if _, exists := b.outputNames[name]; exists {
		b.record("expose", &DuplicateNameError{Kind: "output", Name: name})
		return false
	}
	b.outputNames[name] = struct{}{}
	return true
}

// ComposeIf declares a named conditional subsystem. When enabled is true,
// build is invoked and every node it declares is tagged with the subsystem
// name. When false, build is never invoked and the subsystem's nodes and
// outputs simply do not exist in the graph. Composition is deterministic:
// the same flag always yields the same graph.
//
// Subsystems do not nest.
func (b *Builder) ComposeIf(name string, enabled bool, build func(*Builder)) *Builder {
	if b.finalized {
		b.recordf("compose", "graph %q is finalized", b.name)
		return b
	}
	if name == "" {
		b.recordf("compose", "subsystem name must not be empty")
		return b
	}
	if b.activeSubsystem != "" {
		b.recordf("compose", "subsystem %q declared inside subsystem %q, subsystems do not nest",
			name, b.activeSubsystem)
		return b
	}
	if _, exists := b.subsystems[name]; exists {
		b.record("compose", &DuplicateNameError{Kind: "subsystem", Name: name})
		return b
	}

	b.subsystems[name] = enabled
	if !enabled {
		return b
	}

	b.activeSubsystem = name
	build(b)
	b.activeSubsystem = ""
	return b
}

// Finalize validates the accumulated declarations and produces the immutable
// Graph: expressions parsed and compiled, dependencies inferred, cycles
// rejected, and the topological order computed. All recorded errors are
// reported together.
func (b *Builder) Finalize() (*Graph, error) {
	if b.finalized {
		return nil, terminalf("finalize", "graph %q is already finalized", b.name)
	}
	b.finalized = true

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	env, err := b.buildEnv()
	if err != nil {
		return nil, terminal("environment", err)
	}
	inspector := ast.NewInspector(env, b.variableNames())

	d := dag.NewDirectedAcyclicGraph[string]()
	for _, id := range b.nodeOrder {
		if err := d.AddVertex(id, b.nodes[id].Meta.Index); err != nil {
			return nil, terminal("dependency graph", err)
		}
	}

	for _, id := range b.nodeOrder {
		if err := b.processNode(b.nodes[id], env, inspector, d); err != nil {
			return nil, err
		}
	}

	if err := b.processOutputs(env, inspector); err != nil {
		return nil, err
	}

	order, err := d.TopologicalSort()
	if err != nil {
		return nil, terminal("dependency graph", err)
	}

	return &Graph{
		Name:             b.name,
		DAG:              d,
		Nodes:            b.nodes,
		TopologicalOrder: order,
		Outputs:          b.outputs,
		Subsystems:       b.subsystems,
	}, nil
}

// processNode parses the node's input template, infers dependencies from
// expression references, validates them, and compiles the expressions.
func (b *Builder) processNode(node *Node, env *cel.Env, inspector *ast.Inspector, d *dag.DirectedAcyclicGraph[string]) error {
	stage := fmt.Sprintf("node %q", node.Meta.ID)

	for _, dep := range node.Meta.Dependencies {
		if _, ok := b.nodes[dep]; !ok {
			return terminal(stage, &UnknownReferenceError{NodeID: node.Meta.ID, Reference: dep})
		}
	}

	descriptors, err := parser.ParseTemplate(node.Inputs)
	if err != nil {
		return terminal(stage, err)
	}

	inferred := map[string]struct{}{}
	for _, fd := range descriptors {
		field := &variable.NodeField{
			FieldDescriptor: fd,
			Kind:            variable.NodeVariableKindStatic,
		}
		for _, expr := range fd.Expressions {
			refs, err := b.inspectExpression(node.Meta.ID, expr, inspector)
			if err != nil {
				return terminal(stage, err)
			}
			for _, ref := range refs {
				if ref == ConfigVarName || ref == PlatformVarName {
					continue
				}
				inferred[ref] = struct{}{}
				field.Kind = variable.NodeVariableKindDynamic
			}
			if err := expr.Compile(env); err != nil {
				return terminal(stage, err)
			}
		}
		node.Fields = append(node.Fields, field)
	}

	deps := lo.Uniq(append(node.Meta.Dependencies, lo.Keys(inferred)...))
	sort.Strings(deps)
	node.Meta.Dependencies = deps

	if err := d.AddDependencies(node.Meta.ID, deps); err != nil {
		return terminal("dependency graph", err)
	}
	return nil
}

// processOutputs validates and compiles the graph's output bindings.
func (b *Builder) processOutputs(env *cel.Env, inspector *ast.Inspector) error {
	for _, binding := range b.outputs {
		stage := fmt.Sprintf("output %q", binding.Name)

		switch binding.Kind {
		case OutputKindField:
			node, ok := b.nodes[binding.NodeID]
			if !ok {
				return terminal(stage, &UnknownReferenceError{Reference: binding.NodeID})
			}
			segments, err := fieldPathRoot(binding.FieldPath)
			if err != nil {
				return terminal(stage, err)
			}
			if err := b.registry.ValidateField(node.Meta.ID, node.Meta.Type, segments); err != nil {
				return terminal(stage, err)
			}
			binding.References = []string{binding.NodeID}
			binding.Expression = gwcel.NewUncompiled(binding.NodeID + "." + binding.FieldPath)
			if err := binding.Expression.Compile(env); err != nil {
				return terminal(stage, err)
			}

		case OutputKindLiteral:
			// nothing to validate

		case OutputKindTemplate:
			descriptors, err := parser.ParseTemplate(map[string]interface{}{
				TemplateRootKey: binding.Template,
			})
			if err != nil {
				return terminal(stage, err)
			}
			refs := map[string]struct{}{}
			for _, fd := range descriptors {
				field := &variable.NodeField{
					FieldDescriptor: fd,
					Kind:            variable.NodeVariableKindDynamic,
				}
				for _, expr := range fd.Expressions {
					exprRefs, err := b.inspectExpression("", expr, inspector)
					if err != nil {
						return terminal(stage, err)
					}
					for _, ref := range exprRefs {
						if ref == ConfigVarName || ref == PlatformVarName {
							continue
						}
						refs[ref] = struct{}{}
					}
					if err := expr.Compile(env); err != nil {
						return terminal(stage, err)
					}
				}
				binding.Fields = append(binding.Fields, field)
			}
			binding.References = lo.Keys(refs)
			sort.Strings(binding.References)
		}
	}
	return nil
}

// inspectExpression extracts the resource references of a single expression
// and validates them against declared nodes and the type registry.
func (b *Builder) inspectExpression(nodeID string, expr *gwcel.Expression, inspector *ast.Inspector) ([]string, error) {
	inspection, err := inspector.Inspect(expr.Original)
	if err != nil {
		return nil, err
	}
	if len(inspection.UnknownResources) > 0 {
		return nil, &UnknownReferenceError{
			NodeID:    nodeID,
			Reference: inspection.UnknownResources[0].ID,
		}
	}

	refs := map[string]struct{}{}
	for _, dep := range inspection.ResourceDependencies {
		refs[dep.ID] = struct{}{}

		if dep.ID == nodeID {
			return nil, fmt.Errorf("expression %q references its own node", expr.Original)
		}
		if dep.ID == ConfigVarName || dep.ID == PlatformVarName {
			continue
		}
		if field := firstFieldOf(dep); field != "" {
			node := b.nodes[dep.ID]
			if err := b.registry.ValidateField(node.Meta.ID, node.Meta.Type, field); err != nil {
				return nil, err
			}
		}
	}

	expr.References = lo.Keys(refs)
	sort.Strings(expr.References)
	return expr.References, nil
}

func (b *Builder) buildEnv() (*cel.Env, error) {
	return gwcel.DefaultEnvironment(gwcel.WithResourceIDs(b.variableNames()))
}

// variableNames returns every identifier expressions may reference: all node
// IDs plus the builtin config and platform variables.
func (b *Builder) variableNames() []string {
	names := make([]string, 0, len(b.nodeOrder)+2)
	names = append(names, b.nodeOrder...)
	names = append(names, ConfigVarName, PlatformVarName)
	return names
}

// firstFieldOf returns the first field selected off a resource reference,
// or "" when the reference is the bare identifier.
func firstFieldOf(dep ast.ResourceDependency) string {
	if len(dep.Path) <= len(dep.ID)+1 {
		return ""
	}
	rest := dep.Path[len(dep.ID)+1:]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '.' || rest[i] == '[' {
			return rest[:i]
		}
	}
	return rest
}

// fieldPathRoot returns the first segment of a dotted field path.
func fieldPathRoot(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("field path must not be empty")
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '.' || path[i] == '[' {
			return path[:i], nil
		}
	}
	return path, nil
}

func (b *Builder) record(stage string, err error) {
	b.errs = append(b.errs, terminal(stage, err))
}

func (b *Builder) recordf(stage, format string, a ...any) {
	b.errs = append(b.errs, terminalf(stage, format, a...))
}
