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
	"github.com/spf13/cobra"
)

func NewVersionCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: Highlight("groundwork version") + "\n\n" +
			"Display the current version of groundwork.\n\n" +
			"This information is useful for bug reports, ensuring team\n" +
			"consistency, and verifying compatibility with documentation\n" +
			"and automation scripts.\n",
		Args: MaxArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			cli.PrintVersion()
		},
	}
	return cmd
}
