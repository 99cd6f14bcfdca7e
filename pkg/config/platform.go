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

package config

import "net"

// PlatformConfig configures the shared platform deployable unit.
type PlatformConfig struct {
	// PlatformName names the unit; it becomes the stack name apps reference.
	PlatformName string `yaml:"platformName" env:"PLATFORM_NAME"`
	// DomainName is the hosted zone apps publish subdomains under.
	DomainName string `yaml:"domainName" env:"DOMAIN_NAME"`
	Region     string `yaml:"region" env:"REGION"`

	CidrBlock string `yaml:"cidrBlock" env:"CIDR_BLOCK"`
	AZCount   int    `yaml:"azCount" env:"AZ_COUNT"`

	// EnableDatabase gates the optional RDS subsystem and its outputs.
	EnableDatabase  bool   `yaml:"enableDatabase" env:"ENABLE_DATABASE"`
	DBInstanceClass string `yaml:"dbInstanceClass" env:"DB_INSTANCE_CLASS"`
	DBName          string `yaml:"dbName" env:"DB_NAME"`
	DBUsername      string `yaml:"dbUsername" env:"DB_USERNAME"`

	// EnableTailscale gates the subnet-router subsystem.
	EnableTailscale bool `yaml:"enableTailscale" env:"ENABLE_TAILSCALE"`

	LogRetentionDays int `yaml:"logRetentionDays" env:"LOG_RETENTION_DAYS"`
}

// DefaultPlatformConfig returns a PlatformConfig with every optional key at
// its default.
func DefaultPlatformConfig() PlatformConfig {
	return PlatformConfig{
		CidrBlock:        "10.0.0.0/16",
		AZCount:          2,
		EnableDatabase:   false,
		DBInstanceClass:  "db.t4g.micro",
		DBName:           "app",
		DBUsername:       "app",
		EnableTailscale:  false,
		LogRetentionDays: 30,
	}
}

// LoadPlatformConfig reads a platform config from the YAML file at path
// (optional, "" skips it), overlays GW_-prefixed environment variables, and
// validates.
func LoadPlatformConfig(path string) (PlatformConfig, error) {
	cfg := DefaultPlatformConfig()
	if err := load(&cfg, path); err != nil {
		return PlatformConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return PlatformConfig{}, err
	}
	return cfg, nil
}

// Validate checks required keys and value ranges.
func (c PlatformConfig) Validate() error {
	if c.PlatformName == "" {
		return missingKey("platformName")
	}
	if c.DomainName == "" {
		return missingKey("domainName")
	}
	if c.Region == "" {
		return missingKey("region")
	}
	if c.CidrBlock == "" {
		return missingKey("cidrBlock")
	}
	if _, _, err := net.ParseCIDR(c.CidrBlock); err != nil {
		return invalidKey("cidrBlock", "must be CIDR notation, e.g. 10.0.0.0/16")
	}
	if c.AZCount < 1 || c.AZCount > 6 {
		return invalidKey("azCount", "must be between 1 and 6")
	}
	if c.LogRetentionDays < 1 {
		return invalidKey("logRetentionDays", "must be at least 1")
	}
	return nil
}

// Values returns the config as the map bound to the "config" expression
// variable. Integers are widened to int64 for CEL.
func (c PlatformConfig) Values() map[string]interface{} {
	return map[string]interface{}{
		"platformName":     c.PlatformName,
		"domainName":       c.DomainName,
		"region":           c.Region,
		"cidrBlock":        c.CidrBlock,
		"azCount":          int64(c.AZCount),
		"enableDatabase":   c.EnableDatabase,
		"dbInstanceClass":  c.DBInstanceClass,
		"dbName":           c.DBName,
		"dbUsername":       c.DBUsername,
		"enableTailscale":  c.EnableTailscale,
		"logRetentionDays": int64(c.LogRetentionDays),
	}
}
