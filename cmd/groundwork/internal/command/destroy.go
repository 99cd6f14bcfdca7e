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

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/groundwork-run/groundwork/cmd/groundwork/version"
	"github.com/groundwork-run/groundwork/pkg/blueprint"
	"github.com/groundwork-run/groundwork/pkg/runtime"
	"github.com/groundwork-run/groundwork/pkg/runtime/reconcile"
	"github.com/groundwork-run/groundwork/pkg/stack"
)

// DestroyOptions holds the options for the destroy command.
type DestroyOptions struct {
	UnitOptions
	Parallelism int
}

func NewDestroyCommand(cli *CLI) *cobra.Command {
	var opts DestroyOptions

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down a deployable unit's resources",
		Long: Highlight("groundwork destroy") + "\n\n" +
			"Builds the unit's resource graph from its configuration and deletes\n" +
			"every declaration in reverse dependency order, so resources are gone\n" +
			"before the resources they depend on. On success the stack's snapshot\n" +
			"is replaced with an empty one recording the teardown.\n",
		Args: MaxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestroy(cmd.Context(), cli, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Unit, "unit", "app", "Deployable unit type (platform | app)")
	cmd.Flags().StringVarP(&opts.Config, "config", "f", "", "Path to the unit's YAML config")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 0, "Max concurrent deletions (0 = one per CPU)")
	return cmd
}

func runDestroy(ctx context.Context, cli *CLI, opts DestroyOptions) error {
	log := cli.Logger()

	store, err := openStore(ctx, stateFlag)
	if err != nil {
		return err
	}
	g, vars, err := buildUnit(ctx, store, opts.UnitOptions)
	if err != nil {
		return err
	}

	runID := uuid.New()
	unlock, err := lockWithBackoff(ctx, store, g.Name, runID.String(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			log.Warn("releasing state lock failed", "stack", g.Name, "error", err)
		}
	}()

	rt := runtime.New(g, vars)
	result, err := reconcile.Destroy(ctx, rt,
		reconcile.NewOfflineReconciler(blueprint.DefaultRegistry()),
		reconcile.Options{Parallelism: opts.Parallelism})
	if err != nil {
		return err
	}

	if !result.Failed() {
		now := time.Now().UTC()
		snapshot := &stack.Snapshot{
			Stack:         g.Name,
			RunID:         runID,
			Version:       1,
			EngineVersion: version.Version,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if previous, err := store.Load(ctx, g.Name); err == nil {
			snapshot.Version = previous.Version + 1
			snapshot.CreatedAt = previous.CreatedAt
		}
		if err := store.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		log.Info("stack torn down", "stack", g.Name, "version", snapshot.Version)
	}

	cli.PrintRunReport(runReport(g, result, nil))
	if result.Failed() {
		return fmt.Errorf("destroy failed: %d of %d declarations were not deleted",
			len(result.Errors), len(g.Nodes))
	}
	return nil
}
