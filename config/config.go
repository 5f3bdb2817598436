package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - store.go: Durable record store configuration
//   - remote.go: Remote submission API configuration
//   - queue.go: Submission queue configuration
//   - draft.go: Draft controller configuration
//   - reaper.go: Retention reaper configuration
//   - connectivity.go: Connectivity probe configuration
//   - notify.go: Notification sink configuration
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, verbose output).
	IsDev bool `env:"DEV" envDefault:"false"`

	// Services selects the enabled background services, comma-delimited.
	Services string `env:"SERVICES" envDefault:"queue,reaper"`

	// Durable record store configuration
	Store StoreConfig `envPrefix:"STORE_"`

	// Remote submission API configuration
	Remote RemoteConfig `envPrefix:"REMOTE_"`

	// Submission queue configuration
	Queue QueueConfig `envPrefix:"QUEUE_"`

	// Draft controller configuration
	Draft DraftConfig `envPrefix:"DRAFT_"`

	// Retention reaper configuration
	Reaper ReaperConfig `envPrefix:"REAPER_"`

	// Connectivity probe configuration
	Connectivity ConnectivityConfig `envPrefix:"CONNECTIVITY_"`

	// Notification sink configuration
	Notify NotifyConfig `envPrefix:"NOTIFY_"`

	// Redis connection configuration (only used when the Redis notification
	// channel is enabled)
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Store.Sanitize()
	c.Remote.Sanitize()
	c.Queue.Sanitize()
	c.Draft.Sanitize()
	c.Reaper.Sanitize()
	c.Connectivity.Sanitize()
	c.Notify.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsQueueEnabled returns true if the submission queue service is enabled.
func (c *AppConfig) IsQueueEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeQueue]
}

// IsReaperEnabled returns true if the retention reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeReaper]
}
