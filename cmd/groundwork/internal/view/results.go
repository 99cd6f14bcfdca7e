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

package view

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"
)

// NodeResult is one row of the per-node outcome listing printed after a run.
type NodeResult struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RunReport is the full result of a run, printable in both views.
type RunReport struct {
	Stack   string                 `json:"stack"`
	Failed  bool                   `json:"failed"`
	Nodes   []NodeResult           `json:"nodes"`
	Outputs map[string]interface{} `json:"outputs,omitempty"`
}

// PrintRunReport writes the per-node settled/failed/skipped listing as a
// colored table (human) or a JSON document.
func (h *HumanView) PrintRunReport(report RunReport) {
	headerFmt := color.New(color.FgBlue, color.Underline).SprintfFunc()

	tbl := table.New("NODE", "TYPE", "STATUS", "ERROR")
	tbl.WithHeaderFormatter(headerFmt).WithWriter(h.Writer)

	for _, node := range report.Nodes {
		tbl.AddRow(node.ID, node.Type, colorStatus(node.Status), node.Error)
	}
	tbl.Print()

	h.Println()
	if report.Failed {
		h.Println(color.RedString("Run failed:"), report.Stack)
	} else {
		h.Println(color.GreenString("Run settled:"), report.Stack)
	}
	if len(report.Outputs) > 0 {
		h.Println()
		h.PrintOutputs(report.Outputs)
	}
}

func (j *JSONView) PrintRunReport(report RunReport) {
	raw, _ := json.MarshalIndent(report, "", "  ")
	j.Println(string(raw))
}

// PrintOutputs writes the stack's outputs as a name/value table (human) or a
// JSON object.
func (h *HumanView) PrintOutputs(outputs map[string]interface{}) {
	headerFmt := color.New(color.FgBlue, color.Underline).SprintfFunc()

	tbl := table.New("OUTPUT", "VALUE")
	tbl.WithHeaderFormatter(headerFmt).WithWriter(h.Writer)

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tbl.AddRow(name, outputs[name])
	}
	tbl.Print()
}

func (j *JSONView) PrintOutputs(outputs map[string]interface{}) {
	raw, _ := json.MarshalIndent(outputs, "", "  ")
	j.Println(string(raw))
}

// PlanNode is one declaration in a preview plan.
type PlanNode struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Subsystem string   `json:"subsystem,omitempty"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

// PlanReport is a finalized graph's declaration plan, printed by preview.
type PlanReport struct {
	Stack      string          `json:"stack"`
	Nodes      []PlanNode      `json:"nodes"`
	Outputs    []string        `json:"outputs"`
	Subsystems map[string]bool `json:"subsystems,omitempty"`
}

// PrintPlan writes the declaration plan in topological order.
func (h *HumanView) PrintPlan(plan PlanReport) {
	headerFmt := color.New(color.FgBlue, color.Underline).SprintfFunc()

	tbl := table.New("NODE", "TYPE", "SUBSYSTEM", "DEPENDS ON")
	tbl.WithHeaderFormatter(headerFmt).WithWriter(h.Writer)
	for _, node := range plan.Nodes {
		tbl.AddRow(node.ID, node.Type, node.Subsystem, strings.Join(node.DependsOn, ", "))
	}
	tbl.Print()

	h.Println()
	h.Printf("%d declarations, %d outputs: %s\n",
		len(plan.Nodes), len(plan.Outputs), strings.Join(plan.Outputs, ", "))
	subsystems := make([]string, 0, len(plan.Subsystems))
	for name := range plan.Subsystems {
		subsystems = append(subsystems, name)
	}
	sort.Strings(subsystems)
	for _, name := range subsystems {
		if !plan.Subsystems[name] {
			h.Println(color.YellowString("subsystem excluded:"), name)
		}
	}
}

func (j *JSONView) PrintPlan(plan PlanReport) {
	raw, _ := json.MarshalIndent(plan, "", "  ")
	j.Println(string(raw))
}

func colorStatus(status string) string {
	switch status {
	case "Settled":
		return color.GreenString(status)
	case "Failed":
		return color.RedString(status)
	case "Skipped":
		return color.YellowString(status)
	default:
		return status
	}
}
