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

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template map[string]interface{}
		want     map[string]struct {
			expressions []string
			standalone  bool
		}
	}{
		{
			name: "standalone expression",
			template: map[string]interface{}{
				"vpcId": "${vpc.id}",
			},
			want: map[string]struct {
				expressions []string
				standalone  bool
			}{
				"vpcId": {expressions: []string{"vpc.id"}, standalone: true},
			},
		},
		{
			name: "string template with multiple expressions",
			template: map[string]interface{}{
				"endpoint": "http://${alb.dnsName}:${config.containerPort}",
			},
			want: map[string]struct {
				expressions []string
				standalone  bool
			}{
				"endpoint": {
					expressions: []string{"alb.dnsName", "config.containerPort"},
					standalone:  false,
				},
			},
		},
		{
			name: "nested maps and lists",
			template: map[string]interface{}{
				"containerDefinitions": []interface{}{
					map[string]interface{}{
						"image": "${repo.repositoryUrl}:latest",
						"environment": []interface{}{
							map[string]interface{}{
								"name":  "DB_HOST",
								"value": "${db.address}",
							},
						},
					},
				},
			},
			want: map[string]struct {
				expressions []string
				standalone  bool
			}{
				"containerDefinitions[0].image": {
					expressions: []string{"repo.repositoryUrl"},
					standalone:  false,
				},
				"containerDefinitions[0].environment[0].value": {
					expressions: []string{"db.address"},
					standalone:  true,
				},
			},
		},
		{
			name: "no expressions",
			template: map[string]interface{}{
				"cidrBlock": "10.0.0.0/16",
				"azCount":   2,
				"tags":      map[string]interface{}{"team": "platform"},
			},
			want: nil,
		},
		{
			name: "expression with nested braces and strings",
			template: map[string]interface{}{
				"state": `${cluster.status == "ACTIVE" ? "up" : "down"}`,
			},
			want: map[string]struct {
				expressions []string
				standalone  bool
			}{
				"state": {
					expressions: []string{`cluster.status == "ACTIVE" ? "up" : "down"`},
					standalone:  true,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTemplate(tt.template)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))

			for _, fd := range got {
				want, ok := tt.want[fd.Path]
				require.True(t, ok, "unexpected descriptor path %q", fd.Path)
				assert.Equal(t, want.standalone, fd.StandaloneExpression, "path %q", fd.Path)

				var originals []string
				for _, expr := range fd.Expressions {
					originals = append(originals, expr.Original)
				}
				assert.Equal(t, want.expressions, originals, "path %q", fd.Path)
			}
		})
	}
}

func TestParseTemplate_Deterministic(t *testing.T) {
	template := map[string]interface{}{
		"b": "${nodeB.id}",
		"a": "${nodeA.id}",
		"c": "${nodeC.id}",
	}

	first, err := ParseTemplate(template)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ParseTemplate(template)
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Path, again[j].Path)
		}
	}
}

func TestParseTemplate_UnterminatedExpression(t *testing.T) {
	_, err := ParseTemplate(map[string]interface{}{
		"broken": "${vpc.id",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")
}

func TestExtractExpressions(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"plain string", nil},
		{"${a}", []string{"a"}},
		{"x-${a.b}-y-${c.d}", []string{"a.b", "c.d"}},
		{`${flags["enabled"]}`, []string{`flags["enabled"]`}},
		{`${x ? "{" : "}"}`, []string{`x ? "{" : "}"`}},
		{"$notanexpr {also not}", nil},
	}

	for _, tt := range tests {
		got, err := extractExpressions(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestIsStandaloneExpression(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"${a.b}", true},
		{"${a}${b}", false},
		{"prefix-${a}", false},
		{"${a}-suffix", false},
		{"no expression", false},
		{`${m["k"]}`, true},
	}

	for _, tt := range tests {
		got, err := isStandaloneExpression(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
