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

package stack

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_PresenceSemantics(t *testing.T) {
	present := Present("vpc-123")
	assert.True(t, present.IsPresent())
	assert.Equal(t, "vpc-123", present.StringValue())

	value, ok := present.Get()
	assert.True(t, ok)
	assert.Equal(t, "vpc-123", value)

	absent := Absent()
	assert.False(t, absent.IsPresent())
	assert.Equal(t, "", absent.StringValue())
	assert.Equal(t, "fallback", absent.OrElse("fallback"))
	assert.Equal(t, "<absent>", absent.String())

	_, ok = absent.Get()
	assert.False(t, ok)
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Stack:   "acme-prod",
		RunID:   uuid.New(),
		Version: 3,
		Outputs: map[string]interface{}{
			"vpcId":            "vpc-0abc",
			"albDnsName":       "alb-123.us-east-1.elb.amazonaws.com",
			"privateSubnetIds": []interface{}{"subnet-1", "subnet-2"},
			"storedNull":       nil,
		},
	}
}

func TestSnapshot_Output(t *testing.T) {
	snap := testSnapshot()

	assert.Equal(t, "vpc-0abc", snap.Output("vpcId").StringValue())

	// missing binding resolves to absent, never an error
	assert.False(t, snap.Output("dbEndpoint").IsPresent())

	// a stored null is indistinguishable from absence
	assert.False(t, snap.Output("storedNull").IsPresent())

	// nil snapshot resolves everything to absent
	var nilSnap *Snapshot
	assert.False(t, nilSnap.Output("vpcId").IsPresent())
}

func TestReference_Resolve(t *testing.T) {
	ref := NewReference(testSnapshot())

	assert.Equal(t, "acme-prod", ref.Stack())
	assert.True(t, ref.Resolve("vpcId").IsPresent())
	assert.False(t, ref.Resolve("dbEndpoint").IsPresent())
}

func TestReference_ResolveExcludedSubsystemOutput(t *testing.T) {
	// A platform deployed without its database subsystem has no dbEndpoint
	// binding at all; resolution is soft.
	ref := NewReference(testSnapshot())
	out := ref.Resolve("dbEndpoint")
	assert.False(t, out.IsPresent())
	assert.Nil(t, out.OrElse(nil))
}

func TestReference_Require(t *testing.T) {
	ref := NewReference(testSnapshot())

	resolved, err := ref.Require("vpcId", "albDnsName")
	require.NoError(t, err)
	assert.Len(t, resolved, 2)

	_, err = ref.Require("vpcId", "dbEndpoint", "certificateArn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "certificateArn")
	assert.Contains(t, err.Error(), "dbEndpoint")
	assert.NotContains(t, err.Error(), "vpcId")
}

func TestReference_Values(t *testing.T) {
	ref := NewReference(testSnapshot())
	values := ref.Values()

	assert.Equal(t, "vpc-0abc", values["vpcId"])
	assert.NotContains(t, values, "storedNull")
	assert.NotContains(t, values, "dbEndpoint")
}
