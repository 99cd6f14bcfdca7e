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

// Package fieldpath builds and parses the dotted field paths used to locate
// values inside declaration input templates, e.g.
// `containerDefinitions[0].environment[2].value`.
package fieldpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step in a field path: either a named field (Index == -1)
// or an array index (Name == "").
type Segment struct {
	Name  string
	Index int
}

// Field returns a named field segment.
func Field(name string) Segment {
	return Segment{Name: name, Index: -1}
}

// Index returns an array index segment.
func Index(i int) Segment {
	return Segment{Index: i}
}

// Build constructs a field path string from a slice of segments.
//
// Examples:
//   - [{Field: "spec"}, {Field: "containers", ArrayIdx: 0}] -> spec.containers[0]
//   - [{Field: "spec"}, {Field: "my.field"}] -> spec["my.field"]
func Build(segments []Segment) string {
	var b strings.Builder

	for i, segment := range segments {
		if segment.Index != -1 {
			b.WriteString(fmt.Sprintf("[%d]", segment.Index))
			continue
		}

		// Use bracket notation for field names with dots or empty names
		if strings.Contains(segment.Name, ".") || segment.Name == "" {
			b.WriteString(fmt.Sprintf(`[%q]`, segment.Name))
		} else {
			// Add a dot before regular field names if this isn't the first segment
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(segment.Name)
		}
	}

	return b.String()
}

// Parse splits a field path string into segments. It accepts dotted names,
// numeric indexes in brackets, and quoted names in brackets.
func Parse(path string) ([]Segment, error) {
	var segments []Segment
	i := 0

	flushName := func(name string) {
		if name != "" {
			segments = append(segments, Field(name))
		}
	}

	for i < len(path) {
		switch path[i] {
		case '.':
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated bracket in path %q", path)
			}
			inner := path[i+1 : i+end]
			if strings.HasPrefix(inner, `"`) {
				name, err := strconv.Unquote(inner)
				if err != nil {
					return nil, fmt.Errorf("invalid quoted segment %s in path %q", inner, path)
				}
				segments = append(segments, Field(name))
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return nil, fmt.Errorf("invalid array index %q in path %q", inner, path)
				}
				segments = append(segments, Index(idx))
			}
			i += end + 1
		default:
			start := i
			for i < len(path) && path[i] != '.' && path[i] != '[' {
				i++
			}
			flushName(path[start:i])
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("empty field path")
	}
	return segments, nil
}
