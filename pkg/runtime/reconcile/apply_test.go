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

package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-run/groundwork/pkg/graph"
	"github.com/groundwork-run/groundwork/pkg/runtime"
)

// recordingReconciler tracks reconcile order and fails configured nodes.
type recordingReconciler struct {
	mu      sync.Mutex
	order   []string
	deletes []string
	failOn  map[string]error
}

func (r *recordingReconciler) Reconcile(_ context.Context, node *graph.Node, inputs map[string]interface{}) (map[string]interface{}, error) {
	r.mu.Lock()
	r.order = append(r.order, node.Meta.ID)
	r.mu.Unlock()
	if err := r.failOn[node.Meta.ID]; err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": node.Meta.ID + "-live"}, nil
}

func (r *recordingReconciler) Delete(_ context.Context, node *graph.Node) error {
	r.mu.Lock()
	r.deletes = append(r.deletes, node.Meta.ID)
	r.mu.Unlock()
	if err := r.failOn[node.Meta.ID]; err != nil {
		return err
	}
	return nil
}

func chainGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder("chain")
	b.Declare("vpc", "aws:ec2:Vpc", map[string]interface{}{
		"cidrBlock": "10.0.0.0/16",
	})
	b.Declare("subnet", "aws:ec2:Subnet", map[string]interface{}{
		"vpcId": "${vpc.id}",
	})
	b.Declare("service", "aws:ecs:Service", map[string]interface{}{
		"subnetId": "${subnet.id}",
	})
	b.Declare("logs", "aws:cloudwatch:LogGroup", map[string]interface{}{
		"name": "/apps/chain",
	})
	g, err := b.Finalize()
	require.NoError(t, err)
	return g
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestApply_SettlesInDependencyOrder(t *testing.T) {
	rt := runtime.New(chainGraph(t), runtime.Variables{})
	rec := &recordingReconciler{}

	result, err := Apply(context.Background(), rt, rec, Options{Parallelism: 2})
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, runtime.GraphStateSettled, rt.State())

	for _, id := range []string{"vpc", "subnet", "service", "logs"} {
		assert.Equal(t, StatusSettled, result.Statuses[id])
	}

	assert.Less(t, indexOf(rec.order, "vpc"), indexOf(rec.order, "subnet"))
	assert.Less(t, indexOf(rec.order, "subnet"), indexOf(rec.order, "service"))

	outputs, ok := rt.NodeOutputs("service")
	require.True(t, ok)
	assert.Equal(t, "service-live", outputs["id"])
}

func TestApply_ResolvedInputsReachReconciler(t *testing.T) {
	rt := runtime.New(chainGraph(t), runtime.Variables{})

	var got map[string]interface{}
	rec := &captureReconciler{capture: func(node *graph.Node, inputs map[string]interface{}) {
		if node.Meta.ID == "subnet" {
			got = inputs
		}
	}}

	_, err := Apply(context.Background(), rt, rec, Options{})
	require.NoError(t, err)
	assert.Equal(t, "vpc-live", got["vpcId"])
}

type captureReconciler struct {
	capture func(*graph.Node, map[string]interface{})
}

func (r *captureReconciler) Reconcile(_ context.Context, node *graph.Node, inputs map[string]interface{}) (map[string]interface{}, error) {
	r.capture(node, inputs)
	return map[string]interface{}{"id": node.Meta.ID + "-live"}, nil
}

func (r *captureReconciler) Delete(_ context.Context, _ *graph.Node) error {
	return nil
}

func TestApply_FailureSkipsDependents(t *testing.T) {
	rt := runtime.New(chainGraph(t), runtime.Variables{})
	boom := errors.New("boom")
	rec := &recordingReconciler{failOn: map[string]error{"subnet": boom}}

	result, err := Apply(context.Background(), rt, rec, Options{})
	require.NoError(t, err)

	assert.True(t, result.Failed())
	assert.Equal(t, runtime.GraphStateFailed, rt.State())

	assert.Equal(t, StatusSettled, result.Statuses["vpc"])
	assert.Equal(t, StatusFailed, result.Statuses["subnet"])
	assert.Equal(t, StatusSkipped, result.Statuses["service"])
	// independent branch still settles
	assert.Equal(t, StatusSettled, result.Statuses["logs"])

	var rerr *ReconciliationError
	require.ErrorAs(t, result.Errors["subnet"], &rerr)
	assert.Equal(t, "subnet", rerr.NodeID)
	assert.ErrorIs(t, rerr, boom)
}

func TestApply_OfflineReconciler(t *testing.T) {
	registry := graph.NewTypeRegistry()
	registry.Register(graph.TypeSpec{Tag: "aws:ec2:Vpc", OutputFields: []string{"id", "cidrBlock"}})
	registry.Register(graph.TypeSpec{Tag: "aws:ec2:Subnet", OutputFields: []string{"id"}})
	registry.Register(graph.TypeSpec{Tag: "aws:ecs:Service", OutputFields: []string{"id"}})
	registry.Register(graph.TypeSpec{Tag: "aws:cloudwatch:LogGroup", OutputFields: []string{"arn", "name"}})

	rt := runtime.New(chainGraph(t), runtime.Variables{})
	result, err := Apply(context.Background(), rt, NewOfflineReconciler(registry), Options{})
	require.NoError(t, err)
	assert.False(t, result.Failed())

	// inputs that share a name with an output field are echoed back
	vpcOut, _ := rt.NodeOutputs("vpc")
	assert.Equal(t, "10.0.0.0/16", vpcOut["cidrBlock"])
	assert.Equal(t, "vpc.id", vpcOut["id"])

	logsOut, _ := rt.NodeOutputs("logs")
	assert.Equal(t, "/apps/chain", logsOut["name"])
	assert.Equal(t, "logs.arn", logsOut["arn"])

	// synthesized ids flow through downstream expressions
	subnetOut, _ := rt.NodeOutputs("subnet")
	assert.Equal(t, "subnet.id", subnetOut["id"])
}

func TestDestroy_ReverseOrder(t *testing.T) {
	rt := runtime.New(chainGraph(t), runtime.Variables{})
	rec := &recordingReconciler{}

	result, err := Destroy(context.Background(), rt, rec, Options{})
	require.NoError(t, err)
	assert.False(t, result.Failed())

	assert.Less(t, indexOf(rec.deletes, "service"), indexOf(rec.deletes, "subnet"))
	assert.Less(t, indexOf(rec.deletes, "subnet"), indexOf(rec.deletes, "vpc"))
}

func TestDestroy_FailureSkipsDependencies(t *testing.T) {
	rt := runtime.New(chainGraph(t), runtime.Variables{})
	boom := errors.New("boom")
	rec := &recordingReconciler{failOn: map[string]error{"subnet": boom}}

	result, err := Destroy(context.Background(), rt, rec, Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusSettled, result.Statuses["service"])
	assert.Equal(t, StatusFailed, result.Statuses["subnet"])
	// the vpc is still referenced by the undeleted subnet
	assert.Equal(t, StatusSkipped, result.Statuses["vpc"])
	assert.Equal(t, StatusSettled, result.Statuses["logs"])
}
