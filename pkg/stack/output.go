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

import "fmt"

// Output is a cross-stack value with an explicit presence marker. Outputs
// produced inside a conditional subsystem that was excluded from the
// producing stack's last deployment are absent, and every consumer must
// branch on presence rather than assume the value exists.
type Output struct {
	value   interface{}
	present bool
}

// Present wraps a value in a present Output.
func Present(value interface{}) Output {
	return Output{value: value, present: true}
}

// Absent is the explicit "no value" marker.
func Absent() Output {
	return Output{}
}

// IsPresent reports whether the output carries a value.
func (o Output) IsPresent() bool {
	return o.present
}

// Get returns the value and whether it is present.
func (o Output) Get() (interface{}, bool) {
	return o.value, o.present
}

// StringValue returns the value as a string. Absent outputs and non-string
// values return "".
func (o Output) StringValue() string {
	if !o.present {
		return ""
	}
	s, ok := o.value.(string)
	if !ok {
		return ""
	}
	return s
}

// OrElse returns the value when present, otherwise fallback.
func (o Output) OrElse(fallback interface{}) interface{} {
	if !o.present {
		return fallback
	}
	return o.value
}

// String implements fmt.Stringer for logging.
func (o Output) String() string {
	if !o.present {
		return "<absent>"
	}
	return fmt.Sprintf("%v", o.value)
}
