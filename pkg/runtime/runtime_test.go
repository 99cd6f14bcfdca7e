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

package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-run/groundwork/pkg/graph"
)

func buildTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder("test")
	b.Declare("vpc", "aws:ec2:Vpc", map[string]interface{}{
		"cidrBlock": "10.0.0.0/16",
	})
	b.Declare("subnet", "aws:ec2:Subnet", map[string]interface{}{
		"vpcId":     "${vpc.id}",
		"cidrBlock": "10.0.1.0/24",
	})
	b.Declare("service", "aws:ecs:Service", map[string]interface{}{
		"subnetId":     "${subnet.id}",
		"desiredCount": "${config.desiredCount}",
		"endpoint":     "http://${subnet.id}.internal",
	})
	b.Expose("vpcId", "vpc", "id")
	b.Expose("subnetId", "subnet", "id")
	b.ExposeValue("region", "us-east-1")
	b.ExposeTemplate("allIds", []interface{}{"${vpc.id}", "${subnet.id}"})

	g, err := b.Finalize()
	require.NoError(t, err)
	return g
}

func newTestRuntime(t *testing.T) *Runtime {
	return New(buildTestGraph(t), Variables{
		Config: map[string]interface{}{"desiredCount": int64(2)},
	})
}

func TestRuntime_StateTransitions(t *testing.T) {
	rt := newTestRuntime(t)
	assert.Equal(t, GraphStateFinalized, rt.State())

	require.NoError(t, rt.Submit())
	require.NoError(t, rt.Begin())
	assert.Equal(t, GraphStateReconciling, rt.State())
	require.NoError(t, rt.Complete(false))
	assert.Equal(t, GraphStateSettled, rt.State())

	// invalid transition
	assert.Error(t, rt.Begin())
}

func TestRuntime_FailedRun(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.Submit())
	require.NoError(t, rt.Begin())
	require.NoError(t, rt.Complete(true))
	assert.Equal(t, GraphStateFailed, rt.State())
}

func TestRuntime_ResolvedInputsPendingUntilDependencySettles(t *testing.T) {
	rt := newTestRuntime(t)

	// vpc has no dependencies: resolvable immediately
	inputs, err := rt.ResolvedInputs("vpc")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/16", inputs["cidrBlock"])

	// subnet depends on vpc outputs
	_, err = rt.ResolvedInputs("subnet")
	require.Error(t, err)
	assert.True(t, IsOutputPending(err))

	require.NoError(t, rt.SetOutputs("vpc", map[string]interface{}{"id": "vpc-0abc"}))

	inputs, err = rt.ResolvedInputs("subnet")
	require.NoError(t, err)
	assert.Equal(t, "vpc-0abc", inputs["vpcId"])
	assert.Equal(t, "10.0.1.0/24", inputs["cidrBlock"])
}

func TestRuntime_ResolvedInputsStaticAndTemplates(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.SetOutputs("vpc", map[string]interface{}{"id": "vpc-0abc"}))
	require.NoError(t, rt.SetOutputs("subnet", map[string]interface{}{"id": "subnet-1"}))

	inputs, err := rt.ResolvedInputs("service")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inputs["desiredCount"])
	assert.Equal(t, "subnet-1", inputs["subnetId"])
	assert.Equal(t, "http://subnet-1.internal", inputs["endpoint"])
}

func TestRuntime_ResolvedInputsDoesNotMutateGraph(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.SetOutputs("vpc", map[string]interface{}{"id": "vpc-0abc"}))

	_, err := rt.ResolvedInputs("subnet")
	require.NoError(t, err)

	// the graph's template keeps its expression intact
	assert.Equal(t, "${vpc.id}", rt.Graph().Nodes["subnet"].Inputs["vpcId"])
}

func TestRuntime_OutputsOmitUnresolvedBindings(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.SetOutputs("vpc", map[string]interface{}{"id": "vpc-0abc"}))
	// subnet never settles

	outputs, err := rt.Outputs()
	require.NoError(t, err)

	assert.Equal(t, "vpc-0abc", outputs["vpcId"])
	assert.Equal(t, "us-east-1", outputs["region"])
	// bindings referencing the unsettled node are omitted, not null
	assert.NotContains(t, outputs, "subnetId")
	assert.NotContains(t, outputs, "allIds")
}

func TestRuntime_OutputsWithTemplates(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.SetOutputs("vpc", map[string]interface{}{"id": "vpc-0abc"}))
	require.NoError(t, rt.SetOutputs("subnet", map[string]interface{}{"id": "subnet-1"}))

	outputs, err := rt.Outputs()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"vpc-0abc", "subnet-1"}, outputs["allIds"])
}

func TestRuntime_Settled(t *testing.T) {
	rt := newTestRuntime(t)
	assert.False(t, rt.Settled())

	require.NoError(t, rt.SetOutputs("vpc", map[string]interface{}{"id": "a"}))
	require.NoError(t, rt.SetOutputs("subnet", map[string]interface{}{"id": "b"}))
	require.NoError(t, rt.SetOutputs("service", map[string]interface{}{"id": "c"}))
	assert.True(t, rt.Settled())
}

func TestRuntime_UnknownNode(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.ResolvedInputs("nope")
	assert.Error(t, err)
	assert.Error(t, rt.SetOutputs("nope", nil))
}
