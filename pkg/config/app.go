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

// AppConfig configures one application deployable unit.
type AppConfig struct {
	// AppName names the unit; it becomes the stack name and the prefix for
	// every resource the app declares.
	AppName string `yaml:"appName" env:"APP_NAME"`
	// Subdomain is the host the app serves under, e.g. "checkout-api". Also
	// the input to the deterministic listener-rule priority.
	Subdomain string `yaml:"subdomain" env:"SUBDOMAIN"`
	// PlatformStackRef names the platform stack whose outputs this app
	// consumes.
	PlatformStackRef string `yaml:"platformStackRef" env:"PLATFORM_STACK_REF"`

	// ImageTag selects the container image tag to deploy.
	ImageTag string `yaml:"imageTag" env:"IMAGE_TAG"`

	CPU           int `yaml:"cpu" env:"CPU"`
	Memory        int `yaml:"memory" env:"MEMORY"`
	DesiredCount  int `yaml:"desiredCount" env:"DESIRED_COUNT"`
	ContainerPort int `yaml:"containerPort" env:"CONTAINER_PORT"`

	// UseFargateSpot runs the service on a FARGATE_SPOT-weighted capacity
	// provider strategy with an on-demand fallback.
	UseFargateSpot bool `yaml:"useFargateSpot" env:"USE_FARGATE_SPOT"`

	EnableScheduledScaling bool    `yaml:"enableScheduledScaling" env:"ENABLE_SCHEDULED_SCALING"`
	ScaleUpHour            int     `yaml:"scaleUpHour" env:"SCALE_UP_HOUR"`
	ScaleDownHour          int     `yaml:"scaleDownHour" env:"SCALE_DOWN_HOUR"`
	ScheduleTimezone       string  `yaml:"scheduleTimezone" env:"SCHEDULE_TIMEZONE"`
}

// DefaultAppConfig returns an AppConfig with every optional key at its
// default. Required keys stay empty and fail validation until set.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		ImageTag:               "latest",
		CPU:                    256,
		Memory:                 512,
		DesiredCount:           1,
		ContainerPort:          3000,
		UseFargateSpot:         true,
		EnableScheduledScaling: false,
		ScaleUpHour:            6,
		ScaleDownHour:          22,
		ScheduleTimezone:       "Etc/UTC",
	}
}

// LoadAppConfig reads an app config from the YAML file at path (optional,
// "" skips it), overlays GW_-prefixed environment variables, and validates.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()
	if err := load(&cfg, path); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks required keys and value ranges.
func (c AppConfig) Validate() error {
	if c.AppName == "" {
		return missingKey("appName")
	}
	if c.Subdomain == "" {
		return missingKey("subdomain")
	}
	if c.PlatformStackRef == "" {
		return missingKey("platformStackRef")
	}
	if c.CPU <= 0 {
		return invalidKey("cpu", "must be positive")
	}
	if c.Memory <= 0 {
		return invalidKey("memory", "must be positive")
	}
	if c.DesiredCount < 0 {
		return invalidKey("desiredCount", "must not be negative")
	}
	if c.ContainerPort <= 0 || c.ContainerPort > 65535 {
		return invalidKey("containerPort", "must be a valid port")
	}
	if c.ScaleUpHour < 0 || c.ScaleUpHour > 23 {
		return invalidKey("scaleUpHour", "must be an hour of day (0-23)")
	}
	if c.ScaleDownHour < 0 || c.ScaleDownHour > 23 {
		return invalidKey("scaleDownHour", "must be an hour of day (0-23)")
	}
	return nil
}

// Values returns the config as the map bound to the "config" expression
// variable. Integers are widened to int64 for CEL.
func (c AppConfig) Values() map[string]interface{} {
	return map[string]interface{}{
		"appName":                c.AppName,
		"subdomain":              c.Subdomain,
		"platformStackRef":       c.PlatformStackRef,
		"imageTag":               c.ImageTag,
		"cpu":                    int64(c.CPU),
		"memory":                 int64(c.Memory),
		"desiredCount":           int64(c.DesiredCount),
		"containerPort":          int64(c.ContainerPort),
		"useFargateSpot":         c.UseFargateSpot,
		"enableScheduledScaling": c.EnableScheduledScaling,
		"scaleUpHour":            int64(c.ScaleUpHour),
		"scaleDownHour":          int64(c.ScaleDownHour),
		"scheduleTimezone":       c.ScheduleTimezone,
	}
}
