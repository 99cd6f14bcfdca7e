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

// Package stack models deployed stacks: the snapshot persisted after each
// run and the read-only references other stacks resolve outputs through.
package stack

import (
	"time"

	"github.com/google/uuid"
)

// ResourceRecord is one settled resource in a snapshot.
type ResourceRecord struct {
	// ID is the node's logical ID within its graph.
	ID string `json:"id"`
	// Type is the provider type tag.
	Type string `json:"type"`
	// Subsystem is the conditional subsystem the node belonged to, or "".
	Subsystem string `json:"subsystem,omitempty"`
	// Outputs holds the provider-reported output fields.
	Outputs map[string]interface{} `json:"outputs,omitempty"`
}

// Snapshot is the persisted result of a stack's last deployment run. It is
// the source cross-stack references resolve against and the diff baseline
// for the next run.
type Snapshot struct {
	// Stack is the fully-qualified stack name, e.g. "acme-prod/checkout-api".
	Stack string `json:"stack"`
	// RunID uniquely identifies the run that produced this snapshot.
	RunID uuid.UUID `json:"runId"`
	// Version increments on every successful save.
	Version int `json:"version"`
	// EngineVersion records which engine build wrote the snapshot.
	EngineVersion string `json:"engineVersion,omitempty"`
	// Outputs holds the stack's exposed output values by binding name.
	// Bindings whose referenced nodes never resolved are not stored at all.
	Outputs map[string]interface{} `json:"outputs"`
	// Resources lists every settled resource, in reconciliation order.
	Resources []ResourceRecord `json:"resources"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Output resolves a named output from the snapshot. Names missing from the
// snapshot — including every binding of a subsystem the producing stack was
// deployed without — return the absent marker, never an error. A stored nil
// is also absent: absence and null are not distinguished across the stack
// boundary.
func (s *Snapshot) Output(name string) Output {
	if s == nil || s.Outputs == nil {
		return Absent()
	}
	value, ok := s.Outputs[name]
	if !ok || value == nil {
		return Absent()
	}
	return Present(value)
}

// OutputNames returns the names of all present outputs.
func (s *Snapshot) OutputNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Outputs))
	for name, value := range s.Outputs {
		if value != nil {
			names = append(names, name)
		}
	}
	return names
}
