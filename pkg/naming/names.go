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

// Package naming derives stable identifiers from user-supplied names. All
// functions are pure: the same inputs always yield the same identifier,
// which keeps redeployments idempotent.
package naming

import "strings"

// Join composes a scoped identifier from name parts, e.g.
// Join("acme-prod", "checkout-api") -> "acme-prod/checkout-api". Stack names
// are composed this way so one platform can host many apps without clashes.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// ResourceName composes a flat, provider-safe resource name from parts,
// e.g. ResourceName("acme-prod", "checkout-api", "service") ->
// "acme-prod-checkout-api-service".
func ResourceName(parts ...string) string {
	return strings.Join(parts, "-")
}

// Subdomain composes the DNS name an app is served under:
// Subdomain("checkout-api", "example.com") -> "checkout-api.example.com".
func Subdomain(appName, domain string) string {
	return appName + "." + domain
}
