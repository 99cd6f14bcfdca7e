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

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/groundwork-run/groundwork/pkg/stack"
)

// LocalStore persists snapshots as JSON files under a base directory, one
// file per stack. Locking uses an exclusive lock file next to the snapshot,
// which serializes runs on the same filesystem; use the S3 store when runs
// can race across machines.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// snapshotPath maps a stack name like "acme-prod/checkout-api" to a file
// under the base dir. Path separators in stack names become directories.
func (s *LocalStore) snapshotPath(stackName string) string {
	return filepath.Join(s.dir, filepath.FromSlash(stackName)+".json")
}

func (s *LocalStore) lockPath(stackName string) string {
	return filepath.Join(s.dir, filepath.FromSlash(stackName)+".lock")
}

// Load implements Store.
func (s *LocalStore) Load(_ context.Context, stackName string) (*stack.Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(stackName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stack %q: %w", stackName, ErrNotFound)
		}
		return nil, fmt.Errorf("read snapshot for %q: %w", stackName, err)
	}

	var snapshot stack.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot for %q: %w", stackName, err)
	}
	return &snapshot, nil
}

// Save implements Store. The snapshot is written to a temp file and renamed
// into place so a crashed run never leaves a truncated snapshot behind.
func (s *LocalStore) Save(_ context.Context, snapshot *stack.Snapshot) error {
	path := s.snapshotPath(snapshot.Stack)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot for %q: %w", snapshot.Stack, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot for %q: %w", snapshot.Stack, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace snapshot for %q: %w", snapshot.Stack, err)
	}
	return nil
}

// Lock implements Store using an O_EXCL lock file.
func (s *LocalStore) Lock(_ context.Context, stackName, holder string) (UnlockFunc, error) {
	path := s.lockPath(stackName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			existing, readErr := os.ReadFile(path)
			lockErr := &LockedStateError{Stack: stackName}
			if readErr == nil {
				lockErr.Holder = strings.TrimSpace(string(existing))
			}
			return nil, lockErr
		}
		return nil, fmt.Errorf("acquire lock for %q: %w", stackName, err)
	}

	_, writeErr := f.WriteString(holder + "\n")
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock for %q: %w", stackName, errors.Join(writeErr, closeErr))
	}

	return func(context.Context) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("release lock for %q: %w", stackName, err)
		}
		return nil
	}, nil
}
