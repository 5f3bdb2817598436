package config

import "time"

// RemoteConfig contains remote submission API configuration.
type RemoteConfig struct {
	// BaseURL is the root of the ingestion endpoint. The client posts
	// attachments to {BaseURL}/attachments and records to {BaseURL}/records.
	BaseURL string `env:"BASE_URL"`

	// Timeout bounds a single HTTP call to the remote API.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to remote API configuration values.
func (c *RemoteConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}
