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

// Package state persists stack deployment snapshots. A snapshot is the
// single mutable resource per stack: runs must hold its lock for the whole
// reconciliation, and concurrent runs against the same stack fail fast with
// a LockedStateError instead of interleaving.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/groundwork-run/groundwork/pkg/stack"
)

// ErrNotFound is returned by Load when the stack has no snapshot yet.
var ErrNotFound = errors.New("state: snapshot not found")

// LockedStateError is returned when another run holds the stack's lock.
// Retryable by the caller after backoff.
type LockedStateError struct {
	Stack  string
	Holder string
}

func (e *LockedStateError) Error() string {
	if e.Holder == "" {
		return fmt.Sprintf("state for stack %q is locked by another run", e.Stack)
	}
	return fmt.Sprintf("state for stack %q is locked by %s", e.Stack, e.Holder)
}

// IsLocked reports whether err (or any error in its chain) is a lock
// conflict.
func IsLocked(err error) bool {
	var le *LockedStateError
	return errors.As(err, &le)
}

// UnlockFunc releases a held lock.
type UnlockFunc func(ctx context.Context) error

// Store loads and saves stack snapshots.
type Store interface {
	// Load returns the stack's last snapshot, or ErrNotFound.
	Load(ctx context.Context, stackName string) (*stack.Snapshot, error)

	// Save persists the snapshot, replacing any previous one.
	Save(ctx context.Context, snapshot *stack.Snapshot) error

	// Lock acquires the stack's exclusive lock for the duration of a run.
	// Returns LockedStateError when another run holds it.
	Lock(ctx context.Context, stackName, holder string) (UnlockFunc, error)
}
