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

// Package platform builds the shared platform deployable unit: networking,
// load balancing, TLS, the ECS cluster and task roles, and the optional
// database and tailscale subsystems. Its outputs form the stable contract
// app units resolve through stack references.
package platform

import (
	"fmt"
	"strings"

	"github.com/groundwork-run/groundwork/pkg/blueprint"
	"github.com/groundwork-run/groundwork/pkg/blueprint/policy"
	"github.com/groundwork-run/groundwork/pkg/config"
	"github.com/groundwork-run/groundwork/pkg/graph"
	"github.com/groundwork-run/groundwork/pkg/naming"
)

// Subsystem names of the platform's conditional blocks.
const (
	DatabaseSubsystem  = "database"
	TailscaleSubsystem = "tailscale"
)

// Build assembles the platform graph from the given config. The graph is
// finalized: expressions compiled, dependencies inferred, cycles rejected.
func Build(cfg config.PlatformConfig) (*graph.Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := graph.NewBuilder(cfg.PlatformName, graph.WithTypeRegistry(blueprint.DefaultRegistry()))

	declareNetwork(b, cfg)
	declareLoadBalancer(b, cfg)
	declareDNS(b, cfg)
	declareCluster(b, cfg)

	b.ComposeIf(DatabaseSubsystem, cfg.EnableDatabase, func(b *graph.Builder) {
		declareDatabase(b, cfg)
	})
	b.ComposeIf(TailscaleSubsystem, cfg.EnableTailscale, func(b *graph.Builder) {
		declareTailscale(b, cfg)
	})

	exposeContract(b, cfg)

	return b.Finalize()
}

func declareNetwork(b *graph.Builder, cfg config.PlatformConfig) {
	b.Declare("vpc", "aws:ec2:Vpc", map[string]interface{}{
		"cidrBlock":          cfg.CidrBlock,
		"enableDnsSupport":   true,
		"enableDnsHostnames": true,
		"tags":               tags(cfg, "vpc"),
	})
	b.Declare("internetGateway", "aws:ec2:InternetGateway", map[string]interface{}{
		"vpcId": "${vpc.id}",
		"tags":  tags(cfg, "igw"),
	})

	for i := 0; i < cfg.AZCount; i++ {
		b.Declare(fmt.Sprintf("publicSubnet%d", i), "aws:ec2:Subnet", map[string]interface{}{
			"vpcId":               "${vpc.id}",
			"cidrBlock":           subnetCidr(cfg.CidrBlock, i),
			"availabilityZone":    availabilityZone(cfg.Region, i),
			"mapPublicIpOnLaunch": true,
			"tags":                tags(cfg, fmt.Sprintf("public-%d", i)),
		})
		b.Declare(fmt.Sprintf("privateSubnet%d", i), "aws:ec2:Subnet", map[string]interface{}{
			"vpcId":            "${vpc.id}",
			"cidrBlock":        subnetCidr(cfg.CidrBlock, 100+i),
			"availabilityZone": availabilityZone(cfg.Region, i),
			"tags":             tags(cfg, fmt.Sprintf("private-%d", i)),
		})
	}

	b.Declare("natEip", "aws:ec2:Eip", map[string]interface{}{
		"domain": "vpc",
	})
	b.Declare("natGateway", "aws:ec2:NatGateway", map[string]interface{}{
		"subnetId":     "${publicSubnet0.id}",
		"allocationId": "${natEip.allocationId}",
		"tags":         tags(cfg, "nat"),
	}, "internetGateway")

	b.Declare("publicRouteTable", "aws:ec2:RouteTable", map[string]interface{}{
		"vpcId": "${vpc.id}",
	})
	b.Declare("publicRoute", "aws:ec2:Route", map[string]interface{}{
		"routeTableId":         "${publicRouteTable.id}",
		"destinationCidrBlock": "0.0.0.0/0",
		"gatewayId":            "${internetGateway.id}",
	})
	b.Declare("privateRouteTable", "aws:ec2:RouteTable", map[string]interface{}{
		"vpcId": "${vpc.id}",
	})
	b.Declare("privateRoute", "aws:ec2:Route", map[string]interface{}{
		"routeTableId":         "${privateRouteTable.id}",
		"destinationCidrBlock": "0.0.0.0/0",
		"natGatewayId":         "${natGateway.id}",
	})
	for i := 0; i < cfg.AZCount; i++ {
		b.Declare(fmt.Sprintf("publicRouteAssoc%d", i), "aws:ec2:RouteTableAssociation", map[string]interface{}{
			"subnetId":     fmt.Sprintf("${publicSubnet%d.id}", i),
			"routeTableId": "${publicRouteTable.id}",
		})
		b.Declare(fmt.Sprintf("privateRouteAssoc%d", i), "aws:ec2:RouteTableAssociation", map[string]interface{}{
			"subnetId":     fmt.Sprintf("${privateSubnet%d.id}", i),
			"routeTableId": "${privateRouteTable.id}",
		})
	}
}

func declareLoadBalancer(b *graph.Builder, cfg config.PlatformConfig) {
	b.Declare("albSecurityGroup", "aws:ec2:SecurityGroup", map[string]interface{}{
		"vpcId":       "${vpc.id}",
		"description": "public ALB ingress",
		"ingress": []interface{}{
			ingressRule(80, "0.0.0.0/0"),
			ingressRule(443, "0.0.0.0/0"),
		},
		"egress": []interface{}{egressAll()},
		"tags":   tags(cfg, "alb-sg"),
	})
	b.Declare("alb", "aws:lb:LoadBalancer", map[string]interface{}{
		"name":             naming.ResourceName(cfg.PlatformName, "alb"),
		"loadBalancerType": "application",
		"securityGroups":   []interface{}{"${albSecurityGroup.id}"},
		"subnets":          publicSubnetRefs(cfg.AZCount),
		"tags":             tags(cfg, "alb"),
	})
	b.Declare("httpListener", "aws:lb:Listener", map[string]interface{}{
		"loadBalancerArn": "${alb.arn}",
		"port":            80,
		"protocol":        "HTTP",
		"defaultActions": []interface{}{
			map[string]interface{}{
				"type": "redirect",
				"redirect": map[string]interface{}{
					"port":       "443",
					"protocol":   "HTTPS",
					"statusCode": "HTTP_301",
				},
			},
		},
	})
	b.Declare("httpsListener", "aws:lb:Listener", map[string]interface{}{
		"loadBalancerArn": "${alb.arn}",
		"port":            443,
		"protocol":        "HTTPS",
		"certificateArn":  "${certificateValidation.certificateArn}",
		"defaultActions": []interface{}{
			map[string]interface{}{
				"type": "fixed-response",
				"fixedResponse": map[string]interface{}{
					"contentType": "text/plain",
					"messageBody": "not found",
					"statusCode":  "404",
				},
			},
		},
	})
}

func declareDNS(b *graph.Builder, cfg config.PlatformConfig) {
	b.Declare("hostedZone", "aws:route53:Zone", map[string]interface{}{
		"name": cfg.DomainName,
	})
	b.Declare("certificate", "aws:acm:Certificate", map[string]interface{}{
		"domainName":              "*." + cfg.DomainName,
		"subjectAlternativeNames": []interface{}{cfg.DomainName},
		"validationMethod":        "DNS",
		"tags":                    tags(cfg, "cert"),
	})
	b.Declare("certValidationRecord", "aws:route53:Record", map[string]interface{}{
		"zoneId":  "${hostedZone.zoneId}",
		"name":    "${certificate.validationRecordName}",
		"type":    "${certificate.validationRecordType}",
		"records": []interface{}{"${certificate.validationRecordValue}"},
		"ttl":     60,
	})
	b.Declare("certificateValidation", "aws:acm:CertificateValidation", map[string]interface{}{
		"certificateArn":        "${certificate.arn}",
		"validationRecordFqdns": []interface{}{"${certValidationRecord.fqdn}"},
	})
}

func declareCluster(b *graph.Builder, cfg config.PlatformConfig) {
	b.Declare("cluster", "aws:ecs:Cluster", map[string]interface{}{
		"name": naming.ResourceName(cfg.PlatformName, "cluster"),
		"settings": []interface{}{
			map[string]interface{}{"name": "containerInsights", "value": "enabled"},
		},
		"tags": tags(cfg, "cluster"),
	})
	b.Declare("taskExecutionRole", "aws:iam:Role", map[string]interface{}{
		"name":             naming.ResourceName(cfg.PlatformName, "task-exec"),
		"assumeRolePolicy": policy.AssumeRole("ecs-tasks.amazonaws.com").JSON(),
	})
	b.Declare("taskExecutionPolicy", "aws:iam:RolePolicyAttachment", map[string]interface{}{
		"role":      "${taskExecutionRole.name}",
		"policyArn": "arn:aws:iam::aws:policy/service-role/AmazonECSTaskExecutionRolePolicy",
	})
	b.Declare("taskRole", "aws:iam:Role", map[string]interface{}{
		"name":             naming.ResourceName(cfg.PlatformName, "task"),
		"assumeRolePolicy": policy.AssumeRole("ecs-tasks.amazonaws.com").JSON(),
	})
	b.Declare("logGroup", "aws:cloudwatch:LogGroup", map[string]interface{}{
		"name":            "/ecs/" + cfg.PlatformName,
		"retentionInDays": cfg.LogRetentionDays,
	})
}

func declareDatabase(b *graph.Builder, cfg config.PlatformConfig) {
	b.Declare("dbSubnetGroup", "aws:rds:SubnetGroup", map[string]interface{}{
		"name":      naming.ResourceName(cfg.PlatformName, "db-subnets"),
		"subnetIds": privateSubnetRefs(cfg.AZCount),
	})
	b.Declare("dbSecurityGroup", "aws:ec2:SecurityGroup", map[string]interface{}{
		"vpcId":       "${vpc.id}",
		"description": "database ingress from within the vpc",
		"ingress": []interface{}{
			ingressRule(5432, cfg.CidrBlock),
		},
		"tags": tags(cfg, "db-sg"),
	})
	b.Declare("dbPasswordSecret", "aws:secretsmanager:Secret", map[string]interface{}{
		"name": naming.ResourceName(cfg.PlatformName, "db-password"),
	})
	b.Declare("db", "aws:rds:Instance", map[string]interface{}{
		"identifier":          naming.ResourceName(cfg.PlatformName, "db"),
		"engine":              "postgres",
		"instanceClass":       cfg.DBInstanceClass,
		"allocatedStorage":    20,
		"dbName":              cfg.DBName,
		"username":            cfg.DBUsername,
		"passwordSecretArn":   "${dbPasswordSecret.arn}",
		"dbSubnetGroupName":   "${dbSubnetGroup.name}",
		"vpcSecurityGroupIds": []interface{}{"${dbSecurityGroup.id}"},
		"skipFinalSnapshot":   true,
	})

	b.Expose("dbEndpoint", "db", "address")
	b.Expose("dbPort", "db", "port")
	b.ExposeValue("dbName", cfg.DBName)
	b.ExposeValue("dbUsername", cfg.DBUsername)
	b.Expose("dbPasswordSecretArn", "dbPasswordSecret", "arn")
	b.Expose("dbSecurityGroupId", "dbSecurityGroup", "id")
}

func declareTailscale(b *graph.Builder, cfg config.PlatformConfig) {
	b.Declare("tailscaleAuthKeySecret", "aws:secretsmanager:Secret", map[string]interface{}{
		"name": naming.ResourceName(cfg.PlatformName, "tailscale-auth-key"),
	})
	b.Declare("tailscaleTaskDefinition", "aws:ecs:TaskDefinition", map[string]interface{}{
		"family":                  naming.ResourceName(cfg.PlatformName, "tailscale"),
		"cpu":                     "256",
		"memory":                  "512",
		"networkMode":             "awsvpc",
		"requiresCompatibilities": []interface{}{"FARGATE"},
		"executionRoleArn":        "${taskExecutionRole.arn}",
		"containerDefinitions": []interface{}{
			map[string]interface{}{
				"name":  "tailscale",
				"image": "tailscale/tailscale:stable",
				"environment": []interface{}{
					map[string]interface{}{"name": "TS_ROUTES", "value": cfg.CidrBlock},
				},
				"secrets": []interface{}{
					map[string]interface{}{
						"name":      "TS_AUTHKEY",
						"valueFrom": "${tailscaleAuthKeySecret.arn}",
					},
				},
				"logConfiguration": map[string]interface{}{
					"logDriver": "awslogs",
					"options": map[string]interface{}{
						"awslogs-group":         "${logGroup.name}",
						"awslogs-region":        cfg.Region,
						"awslogs-stream-prefix": "tailscale",
					},
				},
			},
		},
	})
	b.Declare("tailscaleService", "aws:ecs:Service", map[string]interface{}{
		"name":           naming.ResourceName(cfg.PlatformName, "tailscale"),
		"cluster":        "${cluster.arn}",
		"taskDefinition": "${tailscaleTaskDefinition.arn}",
		"desiredCount":   1,
		"launchType":     "FARGATE",
		"networkConfiguration": map[string]interface{}{
			"subnets":        privateSubnetRefs(cfg.AZCount),
			"securityGroups": []interface{}{"${vpc.defaultSecurityGroupId}"},
		},
	})
}

// exposeContract publishes the stable cross-stack output names app units
// resolve. Database outputs are exposed inside declareDatabase, so they are
// simply absent when the subsystem is excluded.
func exposeContract(b *graph.Builder, cfg config.PlatformConfig) {
	b.Expose("vpcId", "vpc", "id")
	b.ExposeTemplate("publicSubnetIds", publicSubnetRefs(cfg.AZCount))
	b.ExposeTemplate("privateSubnetIds", privateSubnetRefs(cfg.AZCount))
	b.Expose("defaultSecurityGroupId", "vpc", "defaultSecurityGroupId")
	b.Expose("albArn", "alb", "arn")
	b.Expose("albDnsName", "alb", "dnsName")
	b.Expose("albZoneId", "alb", "zoneId")
	b.Expose("httpListenerArn", "httpListener", "arn")
	b.Expose("httpsListenerArn", "httpsListener", "arn")
	b.Expose("albSecurityGroupId", "albSecurityGroup", "id")
	b.Expose("hostedZoneId", "hostedZone", "zoneId")
	b.Expose("certificateArn", "certificate", "arn")
	b.Expose("clusterArn", "cluster", "arn")
	b.Expose("clusterName", "cluster", "name")
	b.Expose("taskExecutionRoleArn", "taskExecutionRole", "arn")
	b.Expose("taskRoleArn", "taskRole", "arn")
	b.Expose("logGroupName", "logGroup", "name")
	b.ExposeValue("region", cfg.Region)
	b.ExposeValue("domainName", cfg.DomainName)
}

func publicSubnetRefs(azCount int) []interface{} {
	refs := make([]interface{}, 0, azCount)
	for i := 0; i < azCount; i++ {
		refs = append(refs, fmt.Sprintf("${publicSubnet%d.id}", i))
	}
	return refs
}

func privateSubnetRefs(azCount int) []interface{} {
	refs := make([]interface{}, 0, azCount)
	for i := 0; i < azCount; i++ {
		refs = append(refs, fmt.Sprintf("${privateSubnet%d.id}", i))
	}
	return refs
}

// subnetCidr carves a /24 out of the platform CIDR by replacing the third
// octet. Public subnets use low indices, private subnets 100+.
func subnetCidr(cidrBlock string, index int) string {
	parts := strings.Split(cidrBlock, ".")
	return fmt.Sprintf("%s.%s.%d.0/24", parts[0], parts[1], index)
}

// availabilityZone maps an index to the region's lettered AZ name.
func availabilityZone(region string, index int) string {
	return fmt.Sprintf("%s%c", region, 'a'+index)
}

func ingressRule(port int, cidr string) map[string]interface{} {
	return map[string]interface{}{
		"protocol":   "tcp",
		"fromPort":   port,
		"toPort":     port,
		"cidrBlocks": []interface{}{cidr},
	}
}

func egressAll() map[string]interface{} {
	return map[string]interface{}{
		"protocol":   "-1",
		"fromPort":   0,
		"toPort":     0,
		"cidrBlocks": []interface{}{"0.0.0.0/0"},
	}
}

func tags(cfg config.PlatformConfig, component string) map[string]interface{} {
	return map[string]interface{}{
		"Name":     naming.ResourceName(cfg.PlatformName, component),
		"Platform": cfg.PlatformName,
	}
}
