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

package variable

import (
	gwcel "github.com/groundwork-run/groundwork/pkg/cel"
)

// FieldDescriptor represents a field in a declaration's input template that
// contains CEL expressions. It is created by the parser and enriched by the
// builder:
//
//   - Parser: sets Path, StandaloneExpression, and creates Expression objects
//     with only Original populated (References and Program are nil)
//   - Builder: inspects expressions to populate References, then compiles
//     Program
//
// The field may contain multiple expressions for string templates like
// "prefix-${a}-${b}".
type FieldDescriptor struct {
	// Path is the location of the field in the input template.
	// Example: containerDefinitions[0].environment[2].value
	Path string

	// Expressions contains the CEL expressions for this field.
	//
	// For standalone expressions (e.g., "${foo}"), this contains one
	// expression whose evaluated value replaces the field wholesale. For
	// string templates (e.g., "prefix-${a}-${b}"), this contains multiple
	// expressions interpolated into the template as strings.
	Expressions []*gwcel.Expression

	// StandaloneExpression indicates if this is a single CEL expression vs a
	// string template. Standalone expressions keep the evaluated value's
	// type; templates always produce strings.
	StandaloneExpression bool
}

// NodeField is a variable inside a node's input template: a field whose value
// is a CEL expression rather than a constant. The Kind tells the runtime when
// the expression can be evaluated.
type NodeField struct {
	FieldDescriptor
	// Kind is set by builder based on what the expressions reference.
	Kind NodeVariableKind
}

// NodeVariableKind classifies when a node variable can be resolved.
type NodeVariableKind string

const (
	// NodeVariableKindStatic marks variables that only reference config or
	// platform values. They are resolved once, before any resource is
	// submitted, and stay constant for the run.
	//
	// For example:
	//   desiredCount: ${config.desiredCount}
	NodeVariableKindStatic NodeVariableKind = "static"

	// NodeVariableKindDynamic marks variables that reference other nodes in
	// the graph. They resolve at runtime once the referenced node has
	// reported its outputs.
	//
	// For example:
	//   vpcId: ${vpc.id}
	NodeVariableKindDynamic NodeVariableKind = "dynamic"
)

// String returns the string representation of a NodeVariableKind.
func (k NodeVariableKind) String() string {
	return string(k)
}

// IsStatic returns true if the kind is static.
func (k NodeVariableKind) IsStatic() bool {
	return k == NodeVariableKindStatic
}

// IsDynamic returns true if the kind is dynamic.
func (k NodeVariableKind) IsDynamic() bool {
	return k == NodeVariableKindDynamic
}
