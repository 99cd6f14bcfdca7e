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

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
appName: checkout-api
subdomain: checkout
platformStackRef: platform-prod
`)

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "checkout-api", cfg.AppName)
	assert.Equal(t, 256, cfg.CPU)
	assert.Equal(t, 512, cfg.Memory)
	assert.Equal(t, 1, cfg.DesiredCount)
	assert.Equal(t, 3000, cfg.ContainerPort)
	assert.True(t, cfg.UseFargateSpot)
	assert.False(t, cfg.EnableScheduledScaling)
	assert.Equal(t, 6, cfg.ScaleUpHour)
	assert.Equal(t, 22, cfg.ScaleDownHour)
	assert.Equal(t, "Etc/UTC", cfg.ScheduleTimezone)
	assert.Equal(t, "latest", cfg.ImageTag)
}

func TestLoadAppConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
appName: checkout-api
subdomain: checkout
platformStackRef: platform-prod
cpu: 1024
useFargateSpot: false
enableScheduledScaling: true
`)

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.CPU)
	assert.False(t, cfg.UseFargateSpot)
	assert.True(t, cfg.EnableScheduledScaling)
}

func TestLoadAppConfig_EnvOverlayWins(t *testing.T) {
	path := writeConfigFile(t, `
appName: checkout-api
subdomain: checkout
platformStackRef: platform-prod
cpu: 1024
`)
	t.Setenv("GW_CPU", "2048")
	t.Setenv("GW_SUBDOMAIN", "checkout-v2")

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.CPU)
	assert.Equal(t, "checkout-v2", cfg.Subdomain)
}

func TestLoadAppConfig_MissingRequiredKey(t *testing.T) {
	path := writeConfigFile(t, `
appName: checkout-api
subdomain: checkout
`)

	_, err := LoadAppConfig(path)
	require.Error(t, err)

	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "platformStackRef", cerr.Key)
}

func TestLoadAppConfig_InvalidValue(t *testing.T) {
	path := writeConfigFile(t, `
appName: checkout-api
subdomain: checkout
platformStackRef: platform-prod
scaleUpHour: 25
`)

	_, err := LoadAppConfig(path)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "scaleUpHour", cerr.Key)
}

func TestAppConfig_Values(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.AppName = "checkout-api"
	cfg.Subdomain = "checkout"
	cfg.PlatformStackRef = "platform-prod"

	values := cfg.Values()
	assert.Equal(t, "checkout-api", values["appName"])
	// CEL wants int64, not int
	assert.Equal(t, int64(256), values["cpu"])
	assert.Equal(t, true, values["useFargateSpot"])
}

func TestLoadPlatformConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
platformName: platform-prod
domainName: example.com
region: us-east-1
`)

	cfg, err := LoadPlatformConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/16", cfg.CidrBlock)
	assert.Equal(t, 2, cfg.AZCount)
	assert.False(t, cfg.EnableDatabase)
	assert.False(t, cfg.EnableTailscale)
	assert.Equal(t, 30, cfg.LogRetentionDays)
}

func TestLoadPlatformConfig_MissingRequiredKey(t *testing.T) {
	path := writeConfigFile(t, `
platformName: platform-prod
domainName: example.com
`)

	_, err := LoadPlatformConfig(path)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "region", cerr.Key)
}

func TestLoadPlatformConfig_MalformedCidrBlock(t *testing.T) {
	path := writeConfigFile(t, `
platformName: platform-prod
domainName: example.com
region: us-east-1
`)
	t.Setenv("GW_CIDR_BLOCK", "invalid")

	_, err := LoadPlatformConfig(path)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "cidrBlock", cerr.Key)
}

func TestLoadPlatformConfig_AZCountOutOfRange(t *testing.T) {
	path := writeConfigFile(t, `
platformName: platform-prod
domainName: example.com
region: us-east-1
azCount: 7
`)

	_, err := LoadPlatformConfig(path)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "azCount", cerr.Key)
}

func TestLoadPlatformConfig_EnvEnablesSubsystems(t *testing.T) {
	path := writeConfigFile(t, `
platformName: platform-prod
domainName: example.com
region: us-east-1
`)
	t.Setenv("GW_ENABLE_DATABASE", "true")

	cfg, err := LoadPlatformConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.EnableDatabase)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadAppConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
