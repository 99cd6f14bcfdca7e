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

package runtime

import (
	"errors"
	"strings"
)

// ErrOutputPending indicates that expression evaluation failed because a
// referenced node's outputs are not available yet. This is the expected
// suspension point of a run: the reconciler settles the node's dependencies
// first and retries.
var ErrOutputPending = errors.New("output pending")

// IsOutputPending returns true if the error indicates outputs are pending
// and evaluation should be retried once more nodes settle.
func IsOutputPending(err error) bool {
	return errors.Is(err, ErrOutputPending)
}

// celOutputPendingPatterns are CEL error patterns that indicate a value is
// not available yet (retryable). Other CEL errors are expression bugs.
//
// Output pending (retryable):
//   - "no such key"       : map key doesn't exist (output not reported yet)
//   - "no such field"     : struct field doesn't exist yet
//   - "no such attribute" : variable has no value bound yet
//   - "index out of range": list doesn't have enough items yet
//
// NOT output pending (expression bugs):
//   - "type conversion error" : wrong types in expression
//   - "no such overload"      : invalid operation for types
//   - "division by zero"      : math error
var celOutputPendingPatterns = []string{
	"no such key",
	"no such field",
	"no such attribute",
	"index out of range",
}

// isCELOutputPending checks if a CEL error indicates outputs are pending.
func isCELOutputPending(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range celOutputPendingPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
