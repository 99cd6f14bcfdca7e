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

// Package policy builds IAM policy documents as structured values. Internal
// code composes typed statements; the document is serialized to its JSON
// wire form only when it enters a declaration's inputs.
package policy

import "encoding/json"

// Version is the policy language version every document carries.
const Version = "2012-10-17"

// Principal identifies who a statement applies to.
type Principal struct {
	Service []string `json:"Service,omitempty"`
	AWS     []string `json:"AWS,omitempty"`
}

// Statement is one entry of a policy document.
type Statement struct {
	Sid       string     `json:"Sid,omitempty"`
	Effect    string     `json:"Effect"`
	Principal *Principal `json:"Principal,omitempty"`
	Action    []string   `json:"Action"`
	Resource  []string   `json:"Resource,omitempty"`
}

// Document is a complete policy document.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// NewDocument creates a document with the current policy language version.
func NewDocument(statements ...Statement) Document {
	return Document{Version: Version, Statement: statements}
}

// Allow builds an allow statement over the given actions and resources.
func Allow(actions []string, resources []string) Statement {
	return Statement{
		Effect:   "Allow",
		Action:   actions,
		Resource: resources,
	}
}

// AssumeRole builds the trust policy allowing the given service principal to
// assume the role.
func AssumeRole(service string) Document {
	return NewDocument(Statement{
		Effect:    "Allow",
		Principal: &Principal{Service: []string{service}},
		Action:    []string{"sts:AssumeRole"},
	})
}

// JSON serializes the document to its wire form. Documents contain only
// strings and slices, so marshaling cannot fail.
func (d Document) JSON() string {
	raw, _ := json.Marshal(d)
	return string(raw)
}
