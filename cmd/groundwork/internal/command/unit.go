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
	"strings"

	"github.com/groundwork-run/groundwork/cmd/groundwork/internal/view"
	"github.com/groundwork-run/groundwork/pkg/blueprint/app"
	"github.com/groundwork-run/groundwork/pkg/blueprint/platform"
	"github.com/groundwork-run/groundwork/pkg/config"
	"github.com/groundwork-run/groundwork/pkg/graph"
	"github.com/groundwork-run/groundwork/pkg/runtime"
	"github.com/groundwork-run/groundwork/pkg/runtime/reconcile"
	"github.com/groundwork-run/groundwork/pkg/stack"
	"github.com/groundwork-run/groundwork/pkg/stack/state"
)

// UnitOptions selects which deployable unit a command operates on and where
// its configuration comes from.
type UnitOptions struct {
	// Unit is "platform" or "app".
	Unit string
	// Config is the path to the unit's YAML config file ("" for env-only).
	Config string
}

// openStore resolves the --state flag to a snapshot store: "s3://bucket" or
// "s3://bucket/prefix" selects S3, anything else is a local directory.
func openStore(ctx context.Context, location string) (state.Store, error) {
	if strings.HasPrefix(location, "s3://") {
		trimmed := strings.TrimPrefix(location, "s3://")
		bucket, prefix, _ := strings.Cut(trimmed, "/")
		if bucket == "" {
			return nil, fmt.Errorf("invalid state location %q: missing bucket", location)
		}
		return state.NewS3StoreFromConfig(ctx, bucket, prefix)
	}
	return state.NewLocalStore(location)
}

// buildUnit loads the unit's config, builds and finalizes its graph, and
// binds the expression variables. App units resolve their platform stack
// reference through the store first.
func buildUnit(ctx context.Context, store state.Store, opts UnitOptions) (*graph.Graph, runtime.Variables, error) {
	switch opts.Unit {
	case "platform":
		cfg, err := config.LoadPlatformConfig(opts.Config)
		if err != nil {
			return nil, runtime.Variables{}, err
		}
		g, err := platform.Build(cfg)
		if err != nil {
			return nil, runtime.Variables{}, err
		}
		return g, runtime.Variables{Config: cfg.Values()}, nil

	case "app":
		cfg, err := config.LoadAppConfig(opts.Config)
		if err != nil {
			return nil, runtime.Variables{}, err
		}
		snapshot, err := store.Load(ctx, cfg.PlatformStackRef)
		if err != nil {
			if errors.Is(err, state.ErrNotFound) {
				return nil, runtime.Variables{}, fmt.Errorf(
					"platform stack %q has no snapshot: deploy the platform first", cfg.PlatformStackRef)
			}
			return nil, runtime.Variables{}, err
		}
		ref := stack.NewReference(snapshot)
		g, err := app.Build(cfg, ref)
		if err != nil {
			return nil, runtime.Variables{}, err
		}
		return g, runtime.Variables{Config: cfg.Values(), Platform: ref.Values()}, nil

	default:
		return nil, runtime.Variables{}, fmt.Errorf("unknown unit %q (want platform or app)", opts.Unit)
	}
}

// runReport flattens a reconciliation result into the view's report shape,
// rows in topological order.
func runReport(g *graph.Graph, result *reconcile.Result, outputs map[string]interface{}) view.RunReport {
	report := view.RunReport{
		Stack:   g.Name,
		Failed:  result.Failed(),
		Outputs: outputs,
	}
	for _, id := range g.TopologicalOrder {
		row := view.NodeResult{
			ID:     id,
			Type:   g.Nodes[id].Meta.Type,
			Status: string(result.Statuses[id]),
		}
		if err := result.Errors[id]; err != nil {
			row.Error = err.Error()
		}
		report.Nodes = append(report.Nodes, row)
	}
	return report
}
