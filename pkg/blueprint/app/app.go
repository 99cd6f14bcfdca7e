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

// Package app builds an application deployable unit against a platform
// stack reference: ECR repository, target group and listener rule, task
// definition, ECS service, and DNS record. Optional platform outputs
// (database) are threaded through as presence-checked values, never
// sentinels.
package app

import (
	"fmt"

	"github.com/groundwork-run/groundwork/pkg/blueprint"
	"github.com/groundwork-run/groundwork/pkg/config"
	"github.com/groundwork-run/groundwork/pkg/graph"
	"github.com/groundwork-run/groundwork/pkg/naming"
	"github.com/groundwork-run/groundwork/pkg/stack"
)

// ScheduledScalingSubsystem gates the scalable target and its two scheduled
// actions.
const ScheduledScalingSubsystem = "scheduled-scaling"

// Listener-rule priorities live in this range; the value for a given
// subdomain is a stable hash so redeployments keep their rule.
const (
	priorityLower = 1000
	priorityUpper = 50000
)

// requiredOutputs is the mandatory part of the platform contract. Absence of
// any of these means the platform stack is incomplete, not optionally
// composed.
var requiredOutputs = []string{
	"vpcId",
	"privateSubnetIds",
	"albSecurityGroupId",
	"albDnsName",
	"albZoneId",
	"httpsListenerArn",
	"hostedZoneId",
	"clusterArn",
	"clusterName",
	"taskExecutionRoleArn",
	"taskRoleArn",
	"logGroupName",
	"region",
	"domainName",
}

// Build assembles the app graph from the config and the platform stack
// reference. The reference is the only channel to platform values: the graph
// reads them through the "platform" expression variable, and optional values
// are branched on in Go before anything is declared.
func Build(cfg config.AppConfig, platform *stack.Reference) (*graph.Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	required, err := platform.Require(requiredOutputs...)
	if err != nil {
		return nil, err
	}
	domainName := required["domainName"].StringValue()
	region := required["region"].StringValue()
	host := naming.Subdomain(cfg.Subdomain, domainName)

	priorities := naming.NewAllocator(priorityLower, priorityUpper)
	rulePriority, err := priorities.Allocate(cfg.Subdomain)
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder(
		naming.Join(platform.Stack(), cfg.AppName),
		graph.WithTypeRegistry(blueprint.DefaultRegistry()),
	)

	b.Declare("repo", "aws:ecr:Repository", map[string]interface{}{
		"name":        cfg.AppName,
		"forceDelete": true,
		"imageScanningConfiguration": map[string]interface{}{
			"scanOnPush": true,
		},
	})

	b.Declare("appSecurityGroup", "aws:ec2:SecurityGroup", map[string]interface{}{
		"vpcId":       "${platform.vpcId}",
		"description": "service ingress from the ALB",
		"ingress": []interface{}{
			map[string]interface{}{
				"protocol":       "tcp",
				"fromPort":       cfg.ContainerPort,
				"toPort":         cfg.ContainerPort,
				"securityGroups": []interface{}{"${platform.albSecurityGroupId}"},
			},
		},
		"egress": []interface{}{
			map[string]interface{}{
				"protocol":   "-1",
				"fromPort":   0,
				"toPort":     0,
				"cidrBlocks": []interface{}{"0.0.0.0/0"},
			},
		},
	})

	b.Declare("targetGroup", "aws:lb:TargetGroup", map[string]interface{}{
		"name":       naming.ResourceName(cfg.AppName, "tg"),
		"port":       cfg.ContainerPort,
		"protocol":   "HTTP",
		"targetType": "ip",
		"vpcId":      "${platform.vpcId}",
		"healthCheck": map[string]interface{}{
			"path":               "/health",
			"matcher":            "200",
			"interval":           30,
			"healthyThreshold":   2,
			"unhealthyThreshold": 3,
		},
	})

	b.Declare("listenerRule", "aws:lb:ListenerRule", map[string]interface{}{
		"listenerArn": "${platform.httpsListenerArn}",
		"priority":    rulePriority,
		"actions": []interface{}{
			map[string]interface{}{
				"type":           "forward",
				"targetGroupArn": "${targetGroup.arn}",
			},
		},
		"conditions": []interface{}{
			map[string]interface{}{
				"hostHeader": map[string]interface{}{
					"values": []interface{}{host},
				},
			},
		},
	})

	b.Declare("taskDefinition", "aws:ecs:TaskDefinition", map[string]interface{}{
		"family":                  cfg.AppName,
		"cpu":                     fmt.Sprint(cfg.CPU),
		"memory":                  fmt.Sprint(cfg.Memory),
		"networkMode":             "awsvpc",
		"requiresCompatibilities": []interface{}{"FARGATE"},
		"executionRoleArn":        "${platform.taskExecutionRoleArn}",
		"taskRoleArn":             "${platform.taskRoleArn}",
		"containerDefinitions": []interface{}{
			map[string]interface{}{
				"name":  cfg.AppName,
				"image": "${repo.repositoryUrl}:" + cfg.ImageTag,
				"portMappings": []interface{}{
					map[string]interface{}{
						"containerPort": cfg.ContainerPort,
						"protocol":      "tcp",
					},
				},
				"environment": containerEnvironment(cfg, platform),
				"secrets":     containerSecrets(platform),
				"logConfiguration": map[string]interface{}{
					"logDriver": "awslogs",
					"options": map[string]interface{}{
						"awslogs-group":         "${platform.logGroupName}",
						"awslogs-region":        region,
						"awslogs-stream-prefix": cfg.AppName,
					},
				},
			},
		},
	})

	serviceInputs := map[string]interface{}{
		"name":           cfg.AppName,
		"cluster":        "${platform.clusterArn}",
		"taskDefinition": "${taskDefinition.arn}",
		"desiredCount":   cfg.DesiredCount,
		"networkConfiguration": map[string]interface{}{
			"subnets":        "${platform.privateSubnetIds}",
			"securityGroups": []interface{}{"${appSecurityGroup.id}"},
		},
		"loadBalancers": []interface{}{
			map[string]interface{}{
				"targetGroupArn": "${targetGroup.arn}",
				"containerName":  cfg.AppName,
				"containerPort":  cfg.ContainerPort,
			},
		},
	}
	if cfg.UseFargateSpot {
		serviceInputs["capacityProviderStrategy"] = []interface{}{
			map[string]interface{}{
				"capacityProvider": "FARGATE_SPOT",
				"weight":           4,
			},
			map[string]interface{}{
				"capacityProvider": "FARGATE",
				"weight":           1,
				"base":             1,
			},
		}
	} else {
		serviceInputs["launchType"] = "FARGATE"
	}
	// the rule must exist before the service registers targets
	b.Declare("service", "aws:ecs:Service", serviceInputs, "listenerRule")

	b.Declare("dnsRecord", "aws:route53:Record", map[string]interface{}{
		"zoneId": "${platform.hostedZoneId}",
		"name":   host,
		"type":   "A",
		"aliases": []interface{}{
			map[string]interface{}{
				"name":                 "${platform.albDnsName}",
				"zoneId":               "${platform.albZoneId}",
				"evaluateTargetHealth": true,
			},
		},
	})

	b.ComposeIf(ScheduledScalingSubsystem, cfg.EnableScheduledScaling, func(b *graph.Builder) {
		declareScheduledScaling(b, cfg)
	})

	b.ExposeValue("url", "https://"+host)
	b.ExposeTemplate("image", "${repo.repositoryUrl}:"+cfg.ImageTag)
	b.Expose("serviceId", "service", "id")
	b.Expose("repositoryUrl", "repo", "repositoryUrl")

	return b.Finalize()
}

// declareScheduledScaling scales the service down to zero outside the
// configured hours.
func declareScheduledScaling(b *graph.Builder, cfg config.AppConfig) {
	b.Declare("scalingTarget", "aws:appautoscaling:Target", map[string]interface{}{
		"serviceNamespace":  "ecs",
		"resourceId":        "service/${platform.clusterName}/${service.name}",
		"scalableDimension": "ecs:service:DesiredCount",
		"minCapacity":       0,
		"maxCapacity":       cfg.DesiredCount,
	})
	b.Declare("scaleUpAction", "aws:appautoscaling:ScheduledAction", map[string]interface{}{
		"name":              naming.ResourceName(cfg.AppName, "scale-up"),
		"serviceNamespace":  "ecs",
		"resourceId":        "${scalingTarget.resourceId}",
		"scalableDimension": "ecs:service:DesiredCount",
		"schedule":          cronAtHour(cfg.ScaleUpHour),
		"timezone":          cfg.ScheduleTimezone,
		"scalableTargetAction": map[string]interface{}{
			"minCapacity": cfg.DesiredCount,
			"maxCapacity": cfg.DesiredCount,
		},
	})
	b.Declare("scaleDownAction", "aws:appautoscaling:ScheduledAction", map[string]interface{}{
		"name":              naming.ResourceName(cfg.AppName, "scale-down"),
		"serviceNamespace":  "ecs",
		"resourceId":        "${scalingTarget.resourceId}",
		"scalableDimension": "ecs:service:DesiredCount",
		"schedule":          cronAtHour(cfg.ScaleDownHour),
		"timezone":          cfg.ScheduleTimezone,
		"scalableTargetAction": map[string]interface{}{
			"minCapacity": 0,
			"maxCapacity": 0,
		},
	})
}

// containerEnvironment builds the container env entries. DB_* entries exist
// only when the platform snapshot carries present database outputs; an
// excluded database subsystem leaves no trace in the container contract.
func containerEnvironment(cfg config.AppConfig, platform *stack.Reference) []interface{} {
	env := []interface{}{
		envEntry("PORT", fmt.Sprint(cfg.ContainerPort)),
	}

	dbEndpoint := platform.Resolve("dbEndpoint")
	if !dbEndpoint.IsPresent() {
		return env
	}

	env = append(env,
		envEntry("DB_HOST", dbEndpoint.StringValue()),
		envEntry("DB_PORT", fmt.Sprintf("%v", platform.Resolve("dbPort").OrElse("5432"))),
		envEntry("DB_NAME", platform.Resolve("dbName").StringValue()),
		envEntry("DB_USER", platform.Resolve("dbUsername").StringValue()),
	)
	return env
}

// containerSecrets wires the database password secret when the database
// subsystem was composed into the platform.
func containerSecrets(platform *stack.Reference) []interface{} {
	secretArn := platform.Resolve("dbPasswordSecretArn")
	if !secretArn.IsPresent() {
		return []interface{}{}
	}
	return []interface{}{
		map[string]interface{}{
			"name":      "DB_PASSWORD",
			"valueFrom": secretArn.StringValue(),
		},
	}
}

func envEntry(name, value string) map[string]interface{} {
	return map[string]interface{}{"name": name, "value": value}
}

// cronAtHour builds the daily at-minute-zero cron expression the scheduler
// expects.
func cronAtHour(hour int) string {
	return fmt.Sprintf("cron(0 %d * * ? *)", hour)
}
