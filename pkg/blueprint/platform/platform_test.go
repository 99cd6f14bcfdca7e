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

package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-run/groundwork/pkg/blueprint"
	"github.com/groundwork-run/groundwork/pkg/config"
	"github.com/groundwork-run/groundwork/pkg/runtime"
	"github.com/groundwork-run/groundwork/pkg/runtime/reconcile"
)

func testConfig() config.PlatformConfig {
	cfg := config.DefaultPlatformConfig()
	cfg.PlatformName = "acme-prod"
	cfg.DomainName = "example.com"
	cfg.Region = "us-east-1"
	return cfg
}

func TestBuild_CoreGraph(t *testing.T) {
	g, err := Build(testConfig())
	require.NoError(t, err)

	assert.Equal(t, "acme-prod", g.Name)
	assert.Contains(t, g.Nodes, "vpc")
	assert.Contains(t, g.Nodes, "alb")
	assert.Contains(t, g.Nodes, "httpsListener")
	assert.Contains(t, g.Nodes, "cluster")

	// two AZs by default
	assert.Contains(t, g.Nodes, "publicSubnet1")
	assert.Contains(t, g.Nodes, "privateSubnet1")
	assert.NotContains(t, g.Nodes, "publicSubnet2")

	// expression-inferred edges
	assert.Contains(t, g.Nodes["alb"].Meta.Dependencies, "albSecurityGroup")
	assert.Contains(t, g.Nodes["httpsListener"].Meta.Dependencies, "certificateValidation")
}

func TestBuild_MalformedCidrBlockRejected(t *testing.T) {
	cfg := testConfig()
	cfg.CidrBlock = "invalid"

	g, err := Build(cfg)
	require.Error(t, err)
	assert.Nil(t, g)

	var cerr *config.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestBuild_DatabaseExcluded(t *testing.T) {
	g, err := Build(testConfig())
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{
		DatabaseSubsystem:  false,
		TailscaleSubsystem: false,
	}, g.Subsystems)

	assert.NotContains(t, g.Nodes, "db")
	assert.NotContains(t, g.Nodes, "dbSubnetGroup")
	for _, binding := range g.Outputs {
		assert.NotEqual(t, "dbEndpoint", binding.Name)
	}
}

func TestBuild_DatabaseIncluded(t *testing.T) {
	cfg := testConfig()
	cfg.EnableDatabase = true

	g, err := Build(cfg)
	require.NoError(t, err)

	require.Contains(t, g.Nodes, "db")
	assert.Equal(t, DatabaseSubsystem, g.Nodes["db"].Meta.Subsystem)

	names := make([]string, 0, len(g.Outputs))
	for _, binding := range g.Outputs {
		names = append(names, binding.Name)
	}
	assert.Contains(t, names, "dbEndpoint")
	assert.Contains(t, names, "dbPasswordSecretArn")
}

func TestBuild_Deterministic(t *testing.T) {
	cfg := testConfig()
	cfg.EnableDatabase = true

	first, err := Build(cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		next, err := Build(cfg)
		require.NoError(t, err)
		assert.Equal(t, first.NodeIDs(), next.NodeIDs())
		assert.Equal(t, first.TopologicalOrder, next.TopologicalOrder)
	}
}

func TestBuild_OfflineApplyProducesContract(t *testing.T) {
	cfg := testConfig()
	g, err := Build(cfg)
	require.NoError(t, err)

	rt := runtime.New(g, runtime.Variables{Config: cfg.Values()})
	result, err := reconcile.Apply(context.Background(), rt,
		reconcile.NewOfflineReconciler(blueprint.DefaultRegistry()), reconcile.Options{})
	require.NoError(t, err)
	require.False(t, result.Failed())

	outputs, err := rt.Outputs()
	require.NoError(t, err)

	for _, name := range []string{
		"vpcId", "publicSubnetIds", "privateSubnetIds", "albArn", "albDnsName",
		"httpListenerArn", "httpsListenerArn", "hostedZoneId", "clusterArn",
		"taskExecutionRoleArn", "taskRoleArn", "logGroupName", "region", "domainName",
	} {
		assert.Contains(t, outputs, name)
	}

	assert.Equal(t, "us-east-1", outputs["region"])
	assert.Equal(t, []interface{}{"publicSubnet0.id", "publicSubnet1.id"}, outputs["publicSubnetIds"])
	// database excluded: outputs absent, not null
	assert.NotContains(t, outputs, "dbEndpoint")
}

func TestSubnetCidr(t *testing.T) {
	assert.Equal(t, "10.0.0.0/24", subnetCidr("10.0.0.0/16", 0))
	assert.Equal(t, "10.0.101.0/24", subnetCidr("10.0.0.0/16", 101))
	assert.Equal(t, "172.16.3.0/24", subnetCidr("172.16.0.0/16", 3))
}
