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

package stack

import (
	"fmt"
	"sort"
	"strings"
)

// Reference is a read-only pointer into another stack's last deployment
// snapshot. It is strictly one-directional: an app stack references its
// platform stack, never the other way around, so deployable units cannot
// form cycles.
type Reference struct {
	stack    string
	snapshot *Snapshot
}

// NewReference creates a Reference over a loaded snapshot.
func NewReference(snapshot *Snapshot) *Reference {
	name := ""
	if snapshot != nil {
		name = snapshot.Stack
	}
	return &Reference{stack: name, snapshot: snapshot}
}

// Stack returns the referenced stack's name.
func (r *Reference) Stack() string {
	return r.stack
}

// Resolve reads a named output. Missing bindings resolve to the absent
// marker, never an error: consumers branch on presence.
func (r *Reference) Resolve(bindingName string) Output {
	if r == nil {
		return Absent()
	}
	return r.snapshot.Output(bindingName)
}

// Require resolves the named outputs and fails if any are absent. Use it
// for the mandatory part of a cross-stack contract, where absence means the
// referenced stack is incomplete rather than optionally composed.
func (r *Reference) Require(names ...string) (map[string]Output, error) {
	resolved := make(map[string]Output, len(names))
	var missing []string
	for _, name := range names {
		out := r.Resolve(name)
		if !out.IsPresent() {
			missing = append(missing, name)
			continue
		}
		resolved[name] = out
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("stack %q is missing required outputs: %s",
			r.stack, strings.Join(missing, ", "))
	}
	return resolved, nil
}

// Values returns all present outputs as a plain map, suitable for binding
// as the "platform" variable in app graph expressions.
func (r *Reference) Values() map[string]interface{} {
	if r == nil || r.snapshot == nil {
		return map[string]interface{}{}
	}
	values := make(map[string]interface{}, len(r.snapshot.Outputs))
	for name, value := range r.snapshot.Outputs {
		if value != nil {
			values[name] = value
		}
	}
	return values
}
