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
	"fmt"
	"strings"
)

// extractExpressions returns the CEL expressions embedded in a string, in
// order of appearance. `"a-${x.id}-${y.id}"` yields ["x.id", "y.id"]. A
// string without `${` markers yields nil.
func extractExpressions(s string) ([]string, error) {
	var expressions []string
	for i := 0; i < len(s); {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			end, err := matchingBrace(s, i+2)
			if err != nil {
				return nil, err
			}
			expressions = append(expressions, s[i+2:end])
			i = end + 1
			continue
		}
		i++
	}
	return expressions, nil
}

// matchingBrace finds the brace closing the expression opened just before
// start. It tracks nested braces and skips over string literals, so
// expressions like `${has(x) ? "{a}" : flags["k"]}` parse correctly.
func matchingBrace(s string, start int) (int, error) {
	depth := 1
	var inString byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString != 0 {
			switch c {
			case '\\':
				i++
			case inString:
				inString = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inString = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated expression in %q", s)
}

// isStandaloneExpression reports whether the whole string is a single
// `${...}` expression, as opposed to a template with surrounding text or
// multiple expressions.
func isStandaloneExpression(s string) (bool, error) {
	if !strings.HasPrefix(s, "${") {
		return false, nil
	}
	end, err := matchingBrace(s, 2)
	if err != nil {
		return false, err
	}
	return end == len(s)-1, nil
}

// joinPathAndFieldName appends a field name to a path, using bracket
// notation for names that would be ambiguous in dotted form.
func joinPathAndFieldName(path, fieldName string) string {
	if fieldName == "" || strings.Contains(fieldName, ".") {
		return fmt.Sprintf("%s[%q]", path, fieldName)
	}
	if path == "" {
		return fieldName
	}
	return path + "." + fieldName
}
