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

package naming

import "fmt"

// Priority maps an arbitrary string to a stable integer in [lower, upper).
//
// The hash is a rolling 31-multiplier over the string's runes with 32-bit
// signed wraparound, so the result is identical across runs, hosts, and
// reimplementations that pick the same width. Listener-rule priorities are
// derived this way so redeploying an app never reshuffles rule order.
//
// Priority does not guarantee uniqueness. Two inputs in the same scope can
// collide; use an Allocator when distinct values are required.
//
// Panics if lower >= upper. Bounds are compile-time constants at every call
// site, so a bad range is a programming error, not an input error.
func Priority(input string, lower, upper int) int {
	if lower >= upper {
		panic(fmt.Sprintf("naming: invalid priority range [%d, %d)", lower, upper))
	}

	var h int32
	for _, r := range input {
		h = h*31 + int32(r)
	}

	// abs through int64 so math.MinInt32 does not stay negative.
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}

	return int(abs%int64(upper-lower)) + lower
}

// Allocator hands out distinct priorities within a single scope (e.g. one
// load-balancer listener), resolving hash collisions by linear probing
// upward with wraparound. Allocation order does not affect the value a given
// input receives unless it collides with an earlier allocation, so keep
// per-scope allocation order deterministic.
//
// Allocator is not safe for concurrent use.
type Allocator struct {
	lower, upper int
	taken        map[int]string
}

// NewAllocator creates an Allocator for the range [lower, upper).
// Panics if lower >= upper.
func NewAllocator(lower, upper int) *Allocator {
	if lower >= upper {
		panic(fmt.Sprintf("naming: invalid priority range [%d, %d)", lower, upper))
	}
	return &Allocator{
		lower: lower,
		upper: upper,
		taken: map[int]string{},
	}
}

// Allocate returns a distinct priority for the input. The same input always
// returns the same value within one Allocator; different inputs that hash to
// the same value are probed to the next free slot. Returns an error when the
// range is exhausted.
func (a *Allocator) Allocate(input string) (int, error) {
	size := a.upper - a.lower
	p := Priority(input, a.lower, a.upper)

	for probe := 0; probe < size; probe++ {
		holder, occupied := a.taken[p]
		if !occupied {
			a.taken[p] = input
			return p, nil
		}
		if holder == input {
			return p, nil
		}
		p++
		if p >= a.upper {
			p = a.lower
		}
	}

	return 0, fmt.Errorf("naming: priority range [%d, %d) exhausted", a.lower, a.upper)
}
