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

// Package parser extracts CEL expressions from declaration input templates.
// Any string value of the form "${...}" (or containing "${...}" fragments)
// becomes a FieldDescriptor the builder turns into dependency edges and the
// runtime resolves into concrete values.
package parser

import (
	"fmt"
	"sort"
	"strings"

	gwcel "github.com/groundwork-run/groundwork/pkg/cel"
	"github.com/groundwork-run/groundwork/pkg/graph/variable"
)

// ParseTemplate walks an input template depth-first and extracts every field
// containing CEL expressions. Map keys are visited in sorted order so the
// resulting descriptors are deterministic.
func ParseTemplate(template map[string]interface{}) ([]variable.FieldDescriptor, error) {
	return parseValue(template, "")
}

func parseValue(value interface{}, path string) ([]variable.FieldDescriptor, error) {
	var descriptors []variable.FieldDescriptor

	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fieldPath := joinPathAndFieldName(path, k)
			nested, err := parseValue(v[k], fieldPath)
			if err != nil {
				return nil, err
			}
			descriptors = append(descriptors, nested...)
		}
	case []interface{}:
		for i, item := range v {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			nested, err := parseValue(item, itemPath)
			if err != nil {
				return nil, err
			}
			descriptors = append(descriptors, nested...)
		}
	case string:
		descriptor, ok, err := parseString(v, path)
		if err != nil {
			return nil, err
		}
		if ok {
			descriptors = append(descriptors, descriptor)
		}
	default:
		// Non-string scalars cannot contain expressions.
	}

	return descriptors, nil
}

func parseString(s, path string) (variable.FieldDescriptor, bool, error) {
	standalone, err := isStandaloneExpression(s)
	if err != nil {
		return variable.FieldDescriptor{}, false, fmt.Errorf("field %q: %w", path, err)
	}
	if standalone {
		expr := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
		return variable.FieldDescriptor{
			Path:                 path,
			Expressions:          gwcel.NewUncompiledSlice(expr),
			StandaloneExpression: true,
		}, true, nil
	}

	expressions, err := extractExpressions(s)
	if err != nil {
		return variable.FieldDescriptor{}, false, fmt.Errorf("field %q: %w", path, err)
	}
	if len(expressions) == 0 {
		return variable.FieldDescriptor{}, false, nil
	}
	return variable.FieldDescriptor{
		Path:                 path,
		Expressions:          gwcel.NewUncompiledSlice(expressions...),
		StandaloneExpression: false,
	}, true, nil
}
