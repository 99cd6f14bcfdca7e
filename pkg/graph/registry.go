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
	"sort"
)

// TypeSpec describes a provider resource type: its tag and the output fields
// the provider reports for it once the resource settles.
type TypeSpec struct {
	// Tag is the provider type tag, e.g. "aws:ec2:Vpc".
	Tag string
	// OutputFields lists the top-level output fields this type produces.
	OutputFields []string
}

// TypeRegistry maps type tags to their specs. The builder uses it to reject
// expressions and output bindings that reference output fields a type does
// not produce. Types absent from the registry accept any field, so graphs
// can declare provider types the registry does not know about.
type TypeRegistry struct {
	specs map[string]TypeSpec
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{specs: make(map[string]TypeSpec)}
}

// Register adds or replaces a type spec.
func (r *TypeRegistry) Register(spec TypeSpec) {
	r.specs[spec.Tag] = spec
}

// Lookup returns the spec for a type tag.
func (r *TypeRegistry) Lookup(tag string) (TypeSpec, bool) {
	spec, ok := r.specs[tag]
	return spec, ok
}

// Tags returns all registered type tags in sorted order.
func (r *TypeRegistry) Tags() []string {
	tags := make([]string, 0, len(r.specs))
	for tag := range r.specs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ValidateField checks that field is a known output field of the given type.
// Unregistered types accept any field.
func (r *TypeRegistry) ValidateField(nodeID, tag, field string) error {
	if r == nil {
		return nil
	}
	spec, ok := r.specs[tag]
	if !ok {
		return nil
	}
	if slices.Contains(spec.OutputFields, field) {
		return nil
	}
	return &UnknownFieldError{
		NodeID:  nodeID,
		TypeTag: tag,
		Field:   field,
		Known:   slices.Clone(spec.OutputFields),
	}
}
