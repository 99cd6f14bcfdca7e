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

// Package ast inspects parsed CEL expressions to discover which declared
// resources they reference. The graph builder uses the inspection results to
// infer dependency edges between nodes.
package ast

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
)

// ResourceDependency is one reference to a declared resource inside an
// expression. Path is the longest statically-known access chain rooted at the
// resource identifier, e.g. `vpc.id` or `platform.privateSubnetIds`. Indexing
// and optional access truncate the path at the last plain field select.
type ResourceDependency struct {
	// ID is the identifier of the resource.
	ID string
	// Path is the full access path, including the resource identifier.
	Path string
}

// FunctionCall is a call to a declared (non-builtin) function found in an
// expression.
type FunctionCall struct {
	// Name is the function name as written, qualified for member calls.
	Name string
	// Arguments holds the source form of each argument when available.
	Arguments []string
}

// UnknownResource is an identifier that is neither a declared resource, a
// declared function, nor a comprehension loop variable.
type UnknownResource struct {
	ID   string
	Path string
}

// ExpressionInspection is the result of inspecting a single expression.
type ExpressionInspection struct {
	ResourceDependencies []ResourceDependency
	FunctionCalls        []FunctionCall
	UnknownResources     []UnknownResource
}

// Inspector walks parsed CEL ASTs and records resource references.
// Expressions are parsed, not compiled, so inspection works before any
// resource values exist.
type Inspector struct {
	env       *cel.Env
	resources map[string]struct{}
	functions map[string]struct{}
	// loopVars tracks comprehension iteration variables currently in scope.
	// They shadow declared resources of the same name.
	loopVars map[string]struct{}
}

// NewInspector creates an Inspector for the given environment and declared
// resource identifiers.
func NewInspector(env *cel.Env, resources []string) *Inspector {
	return NewInspectorWithFunctions(env, resources, nil)
}

// NewInspectorWithFunctions creates an Inspector that additionally knows
// about custom function declarations, so member calls like
// `random.seededString(...)` are not mistaken for resource references.
func NewInspectorWithFunctions(env *cel.Env, resources, functions []string) *Inspector {
	resourceMap := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		resourceMap[r] = struct{}{}
	}
	functionMap := make(map[string]struct{}, len(functions))
	for _, fn := range functions {
		functionMap[fn] = struct{}{}
	}
	return &Inspector{
		env:       env,
		resources: resourceMap,
		functions: functionMap,
		loopVars:  make(map[string]struct{}),
	}
}

// Inspect parses the expression and returns every resource reference,
// function call, and unknown identifier it contains.
func (i *Inspector) Inspect(expression string) (ExpressionInspection, error) {
	parsed, issues := i.env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return ExpressionInspection{}, fmt.Errorf("parse %q: %w", expression, issues.Err())
	}

	inspection := &ExpressionInspection{}
	i.walk(parsed.NativeRep().Expr(), inspection)
	return *inspection, nil
}

func (i *Inspector) walk(e celast.Expr, out *ExpressionInspection) {
	switch e.Kind() {
	case celast.IdentKind:
		i.inspectIdent(e.AsIdent(), out)
	case celast.SelectKind:
		i.inspectSelect(e, out)
	case celast.CallKind:
		i.inspectCall(e, out)
	case celast.ListKind:
		for _, elem := range e.AsList().Elements() {
			i.walk(elem, out)
		}
	case celast.MapKind:
		for _, entry := range e.AsMap().Entries() {
			ent := entry.AsMapEntry()
			i.walk(ent.Key(), out)
			i.walk(ent.Value(), out)
		}
	case celast.StructKind:
		for _, field := range e.AsStruct().Fields() {
			i.walk(field.AsStructField().Value(), out)
		}
	case celast.ComprehensionKind:
		i.inspectComprehension(e.AsComprehension(), out)
	case celast.LiteralKind, celast.UnspecifiedExprKind:
		// nothing to record
	}
}

func (i *Inspector) inspectIdent(name string, out *ExpressionInspection) {
	if _, ok := i.loopVars[name]; ok {
		return
	}
	if _, ok := i.resources[name]; ok {
		out.ResourceDependencies = append(out.ResourceDependencies, ResourceDependency{
			ID:   name,
			Path: name,
		})
		return
	}
	i.markUnknown(name, out)
}

// inspectSelect resolves a chain of field selects down to its root. A chain
// rooted at a declared resource becomes a single dependency carrying the full
// dotted path; anything else is walked recursively.
func (i *Inspector) inspectSelect(e celast.Expr, out *ExpressionInspection) {
	fields := []string{e.AsSelect().FieldName()}
	base := e.AsSelect().Operand()
	for base.Kind() == celast.SelectKind {
		sel := base.AsSelect()
		fields = append(fields, sel.FieldName())
		base = sel.Operand()
	}

	if base.Kind() != celast.IdentKind {
		// Root is a call, index, or optional access; only the root subtree
		// can contribute dependencies.
		i.walk(base, out)
		return
	}

	name := base.AsIdent()
	if _, ok := i.loopVars[name]; ok {
		return
	}
	if _, ok := i.resources[name]; ok {
		slices.Reverse(fields)
		out.ResourceDependencies = append(out.ResourceDependencies, ResourceDependency{
			ID:   name,
			Path: name + "." + strings.Join(fields, "."),
		})
		return
	}
	if _, ok := i.functions[name]; ok {
		// Namespaced function prefix, handled at the call site.
		return
	}
	i.markUnknown(name, out)
}

func (i *Inspector) inspectCall(e celast.Expr, out *ExpressionInspection) {
	call := e.AsCall()
	name := call.FunctionName()

	if call.IsMemberFunction() {
		target := call.Target()
		qualified := name
		if target.Kind() == celast.IdentKind {
			qualified = target.AsIdent() + "." + name
		}
		if _, ok := i.functions[qualified]; ok {
			// Declared namespaced function; the target is a namespace, not a
			// resource.
			out.FunctionCalls = append(out.FunctionCalls, FunctionCall{Name: qualified})
		} else {
			out.FunctionCalls = append(out.FunctionCalls, FunctionCall{Name: qualified})
			i.walk(target, out)
		}
		for _, arg := range call.Args() {
			i.walk(arg, out)
		}
		return
	}

	// Operator functions like _&&_, _[_], _?._ and macro internals like
	// @not_strictly_false are structural, not user calls.
	if !strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "@") {
		if _, ok := i.functions[name]; ok {
			out.FunctionCalls = append(out.FunctionCalls, FunctionCall{Name: name})
		}
	}
	for _, arg := range call.Args() {
		i.walk(arg, out)
	}
}

func (i *Inspector) inspectComprehension(comp celast.ComprehensionExpr, out *ExpressionInspection) {
	i.walk(comp.IterRange(), out)

	restore := i.shadow(comp.IterVar(), comp.IterVar2(), comp.AccuVar())
	defer restore()

	i.walk(comp.LoopCondition(), out)
	i.walk(comp.LoopStep(), out)
	i.walk(comp.Result(), out)
}

// shadow registers comprehension-scoped variables and returns a function that
// restores the previous scope.
func (i *Inspector) shadow(vars ...string) func() {
	shadowed := make(map[string]bool, len(vars))
	for _, v := range vars {
		if v == "" {
			continue
		}
		_, shadowed[v] = i.loopVars[v]
		i.loopVars[v] = struct{}{}
	}
	return func() {
		for v, wasPresent := range shadowed {
			if !wasPresent {
				delete(i.loopVars, v)
			}
		}
	}
}

func (i *Inspector) markUnknown(name string, out *ExpressionInspection) {
	for _, u := range out.UnknownResources {
		if u.ID == name {
			return
		}
	}
	out.UnknownResources = append(out.UnknownResources, UnknownResource{ID: name, Path: name})
}
