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

package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssumeRole(t *testing.T) {
	doc := AssumeRole("ecs-tasks.amazonaws.com")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(doc.JSON()), &decoded))

	assert.Equal(t, "2012-10-17", decoded["Version"])
	statements := decoded["Statement"].([]interface{})
	require.Len(t, statements, 1)

	stmt := statements[0].(map[string]interface{})
	assert.Equal(t, "Allow", stmt["Effect"])
	assert.Equal(t, []interface{}{"sts:AssumeRole"}, stmt["Action"])
	principal := stmt["Principal"].(map[string]interface{})
	assert.Equal(t, []interface{}{"ecs-tasks.amazonaws.com"}, principal["Service"])
}

func TestAllow(t *testing.T) {
	doc := NewDocument(Allow(
		[]string{"secretsmanager:GetSecretValue"},
		[]string{"arn:aws:secretsmanager:::secret/db-password"},
	))

	var decoded Document
	require.NoError(t, json.Unmarshal([]byte(doc.JSON()), &decoded))
	require.Len(t, decoded.Statement, 1)
	assert.Equal(t, "Allow", decoded.Statement[0].Effect)
	assert.Nil(t, decoded.Statement[0].Principal)
}

func TestJSON_Deterministic(t *testing.T) {
	doc := AssumeRole("ecs-tasks.amazonaws.com")
	assert.Equal(t, doc.JSON(), doc.JSON())
}
