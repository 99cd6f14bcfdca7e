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

	"github.com/spf13/cobra"
)

func NewOutputsCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outputs <stack>",
		Short: "Show a stack's recorded outputs",
		Long: Highlight("groundwork outputs") + "\n\n" +
			"Loads the stack's last snapshot from the state store and prints the\n" +
			"outputs it exported. These are the values other stacks resolve\n" +
			"through their platform reference.\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutputs(cmd.Context(), cli, args[0])
		},
	}
	return cmd
}

func runOutputs(ctx context.Context, cli *CLI, stackName string) error {
	store, err := openStore(ctx, stateFlag)
	if err != nil {
		return err
	}
	snapshot, err := store.Load(ctx, stackName)
	if err != nil {
		return err
	}
	if len(snapshot.Outputs) == 0 {
		return fmt.Errorf("stack %q has no outputs", stackName)
	}

	outputs := make(map[string]interface{}, len(snapshot.Outputs))
	for name, value := range snapshot.Outputs {
		if value == nil {
			continue
		}
		outputs[name] = value
	}
	cli.PrintOutputs(outputs)
	return nil
}
