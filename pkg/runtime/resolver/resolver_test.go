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

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwcel "github.com/groundwork-run/groundwork/pkg/cel"
	"github.com/groundwork-run/groundwork/pkg/graph/variable"
)

func TestResolver_StandaloneExpression(t *testing.T) {
	template := map[string]interface{}{
		"vpcId":        "${vpc.id}",
		"desiredCount": "${config.desiredCount}",
	}
	data := map[string]interface{}{
		"vpc.id":              "vpc-0abc",
		"config.desiredCount": int64(3),
	}

	r := NewResolver(template, data)
	summary := r.Resolve([]variable.FieldDescriptor{
		{Path: "vpcId", Expressions: gwcel.NewUncompiledSlice("vpc.id"), StandaloneExpression: true},
		{Path: "desiredCount", Expressions: gwcel.NewUncompiledSlice("config.desiredCount"), StandaloneExpression: true},
	})

	require.Empty(t, summary.Errors)
	assert.Equal(t, 2, summary.ResolvedExpressions)
	assert.Equal(t, "vpc-0abc", template["vpcId"])
	// standalone expressions keep the evaluated value's type
	assert.Equal(t, int64(3), template["desiredCount"])
}

func TestResolver_StringTemplate(t *testing.T) {
	template := map[string]interface{}{
		"image": "${repo.repositoryUrl}:${config.tag}",
	}
	data := map[string]interface{}{
		"repo.repositoryUrl": "123.dkr.ecr.us-east-1.amazonaws.com/checkout-api",
		"config.tag":         "latest",
	}

	r := NewResolver(template, data)
	summary := r.Resolve([]variable.FieldDescriptor{
		{
			Path:        "image",
			Expressions: gwcel.NewUncompiledSlice("repo.repositoryUrl", "config.tag"),
		},
	})

	require.Empty(t, summary.Errors)
	assert.Equal(t, "123.dkr.ecr.us-east-1.amazonaws.com/checkout-api:latest", template["image"])
}

func TestResolver_NestedPaths(t *testing.T) {
	template := map[string]interface{}{
		"containerDefinitions": []interface{}{
			map[string]interface{}{
				"environment": []interface{}{
					map[string]interface{}{"name": "DB_HOST", "value": "${db.address}"},
				},
			},
		},
	}
	data := map[string]interface{}{"db.address": "db.internal"}

	r := NewResolver(template, data)
	summary := r.Resolve([]variable.FieldDescriptor{
		{
			Path:                 "containerDefinitions[0].environment[0].value",
			Expressions:          gwcel.NewUncompiledSlice("db.address"),
			StandaloneExpression: true,
		},
	})

	require.Empty(t, summary.Errors)
	defs := template["containerDefinitions"].([]interface{})
	env := defs[0].(map[string]interface{})["environment"].([]interface{})
	assert.Equal(t, "db.internal", env[0].(map[string]interface{})["value"])
}

func TestResolver_NilValueDeletesField(t *testing.T) {
	template := map[string]interface{}{
		"dbEndpoint": "${db.endpoint}",
		"other":      "kept",
	}
	data := map[string]interface{}{"db.endpoint": nil}

	r := NewResolver(template, data)
	summary := r.Resolve([]variable.FieldDescriptor{
		{Path: "dbEndpoint", Expressions: gwcel.NewUncompiledSlice("db.endpoint"), StandaloneExpression: true},
	})

	require.Empty(t, summary.Errors)
	assert.NotContains(t, template, "dbEndpoint")
	assert.Equal(t, "kept", template["other"])
}

func TestResolver_MissingDataIsAnError(t *testing.T) {
	template := map[string]interface{}{"vpcId": "${vpc.id}"}

	r := NewResolver(template, map[string]interface{}{})
	summary := r.Resolve([]variable.FieldDescriptor{
		{Path: "vpcId", Expressions: gwcel.NewUncompiledSlice("vpc.id"), StandaloneExpression: true},
	})

	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Error(), "no data provided")
}

func TestResolver_UpsertValueAtPath(t *testing.T) {
	template := map[string]interface{}{}
	r := NewResolver(template, nil)

	require.NoError(t, r.UpsertValueAtPath("a.b[0].c", "deep"))
	a := template["a"].(map[string]interface{})
	b := a["b"].([]interface{})
	assert.Equal(t, "deep", b[0].(map[string]interface{})["c"])
}
