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

// Package blueprint assembles the platform and application deployable units
// as resource graphs. The subpackages hold the unit builders; this package
// carries the shared provider type registry and naming conventions.
package blueprint

import "github.com/groundwork-run/groundwork/pkg/graph"

// DefaultRegistry returns the type registry for the AWS provider types the
// blueprints declare. OutputFields lists the provider-computed fields the
// builders are allowed to reference; types not listed here accept any field.
func DefaultRegistry() *graph.TypeRegistry {
	r := graph.NewTypeRegistry()
	for _, spec := range []graph.TypeSpec{
		{Tag: "aws:ec2:Vpc", OutputFields: []string{"id", "arn", "cidrBlock", "defaultSecurityGroupId"}},
		{Tag: "aws:ec2:Subnet", OutputFields: []string{"id", "arn", "cidrBlock", "availabilityZone"}},
		{Tag: "aws:ec2:InternetGateway", OutputFields: []string{"id", "arn"}},
		{Tag: "aws:ec2:Eip", OutputFields: []string{"id", "allocationId", "publicIp"}},
		{Tag: "aws:ec2:NatGateway", OutputFields: []string{"id", "publicIp"}},
		{Tag: "aws:ec2:RouteTable", OutputFields: []string{"id", "arn"}},
		{Tag: "aws:ec2:Route", OutputFields: []string{"id"}},
		{Tag: "aws:ec2:RouteTableAssociation", OutputFields: []string{"id"}},
		{Tag: "aws:ec2:SecurityGroup", OutputFields: []string{"id", "arn", "name"}},
		{Tag: "aws:lb:LoadBalancer", OutputFields: []string{"id", "arn", "dnsName", "zoneId"}},
		{Tag: "aws:lb:TargetGroup", OutputFields: []string{"id", "arn", "name"}},
		{Tag: "aws:lb:Listener", OutputFields: []string{"id", "arn"}},
		{Tag: "aws:lb:ListenerRule", OutputFields: []string{"id", "arn"}},
		{Tag: "aws:route53:Zone", OutputFields: []string{"id", "zoneId", "nameServers"}},
		{Tag: "aws:route53:Record", OutputFields: []string{"id", "fqdn", "name"}},
		{Tag: "aws:acm:Certificate", OutputFields: []string{"id", "arn", "validationRecordName", "validationRecordType", "validationRecordValue"}},
		{Tag: "aws:acm:CertificateValidation", OutputFields: []string{"id", "certificateArn"}},
		{Tag: "aws:ecr:Repository", OutputFields: []string{"id", "arn", "name", "repositoryUrl"}},
		{Tag: "aws:ecs:Cluster", OutputFields: []string{"id", "arn", "name"}},
		{Tag: "aws:ecs:TaskDefinition", OutputFields: []string{"id", "arn", "family", "revision"}},
		{Tag: "aws:ecs:Service", OutputFields: []string{"id", "arn", "name"}},
		{Tag: "aws:iam:Role", OutputFields: []string{"id", "arn", "name"}},
		{Tag: "aws:iam:RolePolicyAttachment", OutputFields: []string{"id"}},
		{Tag: "aws:iam:RolePolicy", OutputFields: []string{"id", "name"}},
		{Tag: "aws:cloudwatch:LogGroup", OutputFields: []string{"id", "arn", "name"}},
		{Tag: "aws:rds:Instance", OutputFields: []string{"id", "arn", "endpoint", "address", "port"}},
		{Tag: "aws:rds:SubnetGroup", OutputFields: []string{"id", "arn", "name"}},
		{Tag: "aws:secretsmanager:Secret", OutputFields: []string{"id", "arn", "name"}},
		{Tag: "aws:secretsmanager:SecretVersion", OutputFields: []string{"id", "arn", "versionId"}},
		{Tag: "aws:appautoscaling:Target", OutputFields: []string{"id", "resourceId"}},
		{Tag: "aws:appautoscaling:ScheduledAction", OutputFields: []string{"id", "arn", "name"}},
	} {
		r.Register(spec)
	}
	return r
}
