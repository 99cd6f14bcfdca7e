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

	"github.com/spf13/cobra"

	"github.com/groundwork-run/groundwork/cmd/groundwork/internal/view"
)

func NewPreviewCommand(cli *CLI) *cobra.Command {
	var opts UnitOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show a unit's declaration plan without reconciling",
		Long: Highlight("groundwork preview") + "\n\n" +
			"Builds and finalizes the unit's resource graph from its configuration\n" +
			"and prints the declarations in dependency order, together with the\n" +
			"unit's output contract. No state is locked or modified.\n",
		Args: MaxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), cli, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Unit, "unit", "app", "Deployable unit type (platform | app)")
	cmd.Flags().StringVarP(&opts.Config, "config", "f", "", "Path to the unit's YAML config")
	return cmd
}

func runPreview(ctx context.Context, cli *CLI, opts UnitOptions) error {
	store, err := openStore(ctx, stateFlag)
	if err != nil {
		return err
	}
	g, _, err := buildUnit(ctx, store, opts)
	if err != nil {
		return err
	}

	plan := view.PlanReport{
		Stack:      g.Name,
		Subsystems: g.Subsystems,
	}
	for _, id := range g.TopologicalOrder {
		node := g.Nodes[id]
		plan.Nodes = append(plan.Nodes, view.PlanNode{
			ID:        id,
			Type:      node.Meta.Type,
			Subsystem: node.Meta.Subsystem,
			DependsOn: node.Meta.Dependencies,
		})
	}
	for _, binding := range g.Outputs {
		plan.Outputs = append(plan.Outputs, binding.Name)
	}

	cli.PrintPlan(plan)
	return nil
}
