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

// Package config loads and validates per-unit configuration. A config is a
// YAML document overlaid with GW_-prefixed environment variables, validated
// before any graph declaration is built, then passed into the blueprint
// builders as an immutable value.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// envPrefix namespaces the environment overlay, e.g. GW_APP_NAME.
const envPrefix = "GW_"

// ConfigurationError reports a missing or invalid configuration key. It
// fails the run before anything is declared.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration key %q: %s", e.Key, e.Reason)
}

func missingKey(key string) error {
	return &ConfigurationError{Key: key, Reason: "required but not set"}
}

func invalidKey(key, reason string) error {
	return &ConfigurationError{Key: key, Reason: reason}
}

// load fills cfg from an optional YAML file and the environment overlay.
// cfg must arrive pre-populated with its defaults; absent YAML keys and
// unset environment variables leave them untouched.
func load(cfg interface{}, path string) error {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}
