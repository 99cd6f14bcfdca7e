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
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/groundwork-run/groundwork/cmd/groundwork/internal/view"
	"github.com/groundwork-run/groundwork/cmd/groundwork/version"
)

var (
	outputFlag string
	stateFlag  string
	debugFlag  bool
	rootCmd    *cobra.Command
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "groundwork",
		Short: color.RGB(50, 108, 229).Sprintf("groundwork [global options] <subcommand> [args]") + `\n` +
			"A CLI utility for building and reconciling deployable resource graphs",
		Long: color.RGB(50, 108, 229).Sprintf("Usage: groundwork [global options] <subcommand> [args]\n") +
			"\n" +
			"groundwork builds platform and app deployable units from their YAML\n" +
			"configuration, reconciles every declaration in dependency order, and\n" +
			"records each stack's outputs in a snapshot store so other stacks can\n" +
			"reference them.\n\n",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				_ = cmd.Help()
			}
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output format. One of: (human | json)")
	cmd.PersistentFlags().StringVar(&stateFlag, "state", ".groundwork/state",
		"Snapshot store location: a local directory or s3://bucket[/prefix]")
	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Set log level to debug")
	return cmd
}

func setCobraUsageTemplate() {
	cobra.AddTemplateFunc("StyleHeading", color.RGB(50, 108, 229).SprintFunc())
	usageTemplate := rootCmd.UsageTemplate()
	usageTemplate = strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Examples:`, `{{StyleHeading "Examples:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Additional Commands:`, `{{StyleHeading "Additional Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(usageTemplate)
	rootCmd.SetUsageTemplate(usageTemplate)
}

func setVersionTemplate() {
	rootCmd.SetVersionTemplate("{{.Version}}")
}

func Execute() {
	rootCmd = NewRootCommand()

	// Templates are used to standardize the output format of groundwork.
	setCobraUsageTemplate()
	setVersionTemplate()

	// Disable color output if NO_COLOR is set in the environment
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		color.NoColor = true
	} else {
		color.NoColor = false
	}

	// Create a temporary CLI instance with default settings
	// The viewer will be reconfigured in PersistentPreRun after flags are parsed
	cli := NewCLI(view.ViewHuman, os.Stdout, view.LogLevelSilent)

	// Add all subcommands to the root command
	AddCommands(rootCmd, cli)

	// Configure viewer after flags are parsed by Cobra
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Set up the view type based on the `-o`/`--output` flag
		viewType, err := view.ParseOutputFormat(outputFlag)
		if err != nil {
			cli.Println("Error: invalid output format:", outputFlag)
			os.Exit(1)
		}

		logLevel := view.LogLevelInfo
		logEnv := os.Getenv("GW_LOG")
		switch strings.ToLower(logEnv) {
		case "debug":
			logLevel = view.LogLevelDebug
		case "silent":
			logLevel = view.LogLevelSilent
		default:
			// Unknown value: keep default (info)
		}
		if debugFlag {
			logLevel = view.LogLevelDebug
		}

		// Update the CLI viewer with the correct configuration
		s := view.NewStream(os.Stdout)
		cli.Viewer = view.NewViewer(viewType, s, logLevel)
		cli.Stream = s
	}

	// Walk and execute the resolved command with flags.
	if err := rootCmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			cli.Println(msg)
		}
		os.Exit(1)
	}

	os.Exit(0)
}

// AddCommands registers all subcommands to the root command.
func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewUpCommand(cli),
		NewPreviewCommand(cli),
		NewDestroyCommand(cli),
		NewOutputsCommand(cli),
		NewVersionCommand(cli),
	)
}
