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
	"errors"
	"fmt"
	"strings"
)

// TerminalError indicates a problem the user must fix in their declarations.
// Callers should not retry — the graph definition needs to change.
type TerminalError struct {
	Stage string
	Err   error
}

func (e *TerminalError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *TerminalError) Unwrap() error { return e.Err }

// RetriableError indicates a transient failure (e.g., a provider API being
// unavailable). Callers should retry after backoff.
type RetriableError struct {
	Stage string
	Err   error
}

func (e *RetriableError) Error() string { return fmt.Sprintf("%s (retriable): %v", e.Stage, e.Err) }
func (e *RetriableError) Unwrap() error { return e.Err }

// IsTerminal reports whether err (or any error in its chain) is terminal.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}

// IsRetriable reports whether err (or any error in its chain) is retriable.
func IsRetriable(err error) bool {
	var re *RetriableError
	return errors.As(err, &re)
}

func terminal(stage string, err error) error { return &TerminalError{Stage: stage, Err: err} }
func terminalf(stage, format string, a ...any) error {
	return terminal(stage, fmt.Errorf(format, a...))
}

// DuplicateNameError is returned when a node, output, or subsystem name is
// declared twice within the same graph.
type DuplicateNameError struct {
	// Kind is what was duplicated: "node", "output", or "subsystem".
	Kind string
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name %q", e.Kind, e.Name)
}

// AsDuplicateNameError unwraps err looking for a DuplicateNameError.
func AsDuplicateNameError(err error) (*DuplicateNameError, bool) {
	var de *DuplicateNameError
	ok := errors.As(err, &de)
	return de, ok
}

// UnknownFieldError is returned when an expression or output binding
// references a field the node's registered type does not produce.
type UnknownFieldError struct {
	NodeID  string
	TypeTag string
	Field   string
	Known   []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("node %q (%s) has no output field %q, known fields: %s",
		e.NodeID, e.TypeTag, e.Field, strings.Join(e.Known, ", "))
}

// AsUnknownFieldError unwraps err looking for an UnknownFieldError.
func AsUnknownFieldError(err error) (*UnknownFieldError, bool) {
	var ue *UnknownFieldError
	ok := errors.As(err, &ue)
	return ue, ok
}

// UnknownReferenceError is returned when an expression references an
// identifier that is neither a declared node nor a builtin variable.
type UnknownReferenceError struct {
	NodeID    string
	Reference string
}

func (e *UnknownReferenceError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("expression references undeclared node %q", e.Reference)
	}
	return fmt.Sprintf("node %q references undeclared node %q", e.NodeID, e.Reference)
}
