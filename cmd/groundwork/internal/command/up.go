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
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/groundwork-run/groundwork/cmd/groundwork/internal/view"
	"github.com/groundwork-run/groundwork/cmd/groundwork/version"
	"github.com/groundwork-run/groundwork/pkg/blueprint"
	"github.com/groundwork-run/groundwork/pkg/graph"
	"github.com/groundwork-run/groundwork/pkg/runtime"
	"github.com/groundwork-run/groundwork/pkg/runtime/reconcile"
	"github.com/groundwork-run/groundwork/pkg/stack"
	"github.com/groundwork-run/groundwork/pkg/stack/state"
)

// UpOptions holds the options for the up command.
type UpOptions struct {
	UnitOptions
	Parallelism int
}

func NewUpCommand(cli *CLI) *cobra.Command {
	var opts UpOptions

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Build, finalize, and reconcile a deployable unit",
		Long: Highlight("groundwork up") + "\n\n" +
			"Builds the unit's resource graph from its configuration, locks the\n" +
			"stack's state, reconciles every declaration in dependency order, and\n" +
			"saves the deployment snapshot.\n",
		Args: MaxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), cli, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Unit, "unit", "app", "Deployable unit type (platform | app)")
	cmd.Flags().StringVarP(&opts.Config, "config", "f", "", "Path to the unit's YAML config")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 0, "Max concurrent reconciliations (0 = one per CPU)")
	return cmd
}

func runUp(ctx context.Context, cli *CLI, opts UpOptions) error {
	log := cli.Logger()

	store, err := openStore(ctx, stateFlag)
	if err != nil {
		return err
	}
	g, vars, err := buildUnit(ctx, store, opts.UnitOptions)
	if err != nil {
		return err
	}
	log.Info("graph finalized", "stack", g.Name, "nodes", len(g.Nodes))

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
	result, err := reconcile.Apply(ctx, rt,
		reconcile.NewOfflineReconciler(blueprint.DefaultRegistry()),
		reconcile.Options{Parallelism: opts.Parallelism})
	if err != nil {
		return err
	}

	outputs, err := rt.Outputs()
	if err != nil {
		return err
	}

	if !result.Failed() {
		snapshot := buildSnapshot(ctx, store, g, rt, runID, outputs)
		if err := store.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		log.Info("snapshot saved", "stack", g.Name, "version", snapshot.Version)
	}

	cli.PrintRunReport(runReport(g, result, outputs))
	if result.Failed() {
		return fmt.Errorf("run failed: %d of %d declarations did not settle",
			len(result.Errors), len(g.Nodes))
	}
	return nil
}

// lockWithBackoff acquires the stack's state lock, retrying with exponential
// backoff while another run holds it.
func lockWithBackoff(ctx context.Context, store state.Store, stackName, holder string, log view.Logger) (state.UnlockFunc, error) {
	var unlock state.UnlockFunc

	backoff := retry.WithMaxRetries(5, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		unlock, err = store.Lock(ctx, stackName, holder)
		if err != nil {
			var locked *state.LockedStateError
			if errors.As(err, &locked) {
				log.Warn("state locked, retrying", "stack", stackName, "holder", locked.Holder)
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unlock, nil
}

// buildSnapshot assembles the persisted record of this run, carrying the
// previous snapshot's version and creation time forward.
func buildSnapshot(ctx context.Context, store state.Store, g *graph.Graph, rt *runtime.Runtime, runID uuid.UUID, outputs map[string]interface{}) *stack.Snapshot {
	now := time.Now().UTC()
	snapshot := &stack.Snapshot{
		Stack:         g.Name,
		RunID:         runID,
		Version:       1,
		EngineVersion: version.Version,
		Outputs:       outputs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if previous, err := store.Load(ctx, g.Name); err == nil {
		snapshot.Version = previous.Version + 1
		snapshot.CreatedAt = previous.CreatedAt
	}

	for _, id := range g.TopologicalOrder {
		nodeOutputs, _ := rt.NodeOutputs(id)
		snapshot.Resources = append(snapshot.Resources, stack.ResourceRecord{
			ID:        id,
			Type:      g.Nodes[id].Meta.Type,
			Subsystem: g.Nodes[id].Meta.Subsystem,
			Outputs:   nodeOutputs,
		})
	}
	return snapshot
}
