package config

import "time"

// NotifyConfig contains notification sink configuration. The structured-log
// sink is always available; the webhook and Redis sinks activate when their
// targets are set.
type NotifyConfig struct {
	// LogEnabled controls the structured-log sink.
	LogEnabled bool `env:"LOG" envDefault:"true"`

	// WebhookURL activates the webhook sink when non-empty.
	WebhookURL string `env:"WEBHOOK_URL"`

	// WebhookTimeout bounds one webhook delivery call.
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`

	// WebhookRetryLimit is the number of extra webhook delivery attempts.
	WebhookRetryLimit int `env:"WEBHOOK_RETRY_LIMIT" envDefault:"2"`

	// RedisChannel activates the Redis pub/sub sink when non-empty.
	RedisChannel string `env:"REDIS_CHANNEL"`
}

// Sanitize applies guardrails to notification configuration values.
func (c *NotifyConfig) Sanitize() {
	if c.WebhookTimeout <= 0 {
		c.WebhookTimeout = 5 * time.Second
	}
	if c.WebhookRetryLimit < 0 {
		c.WebhookRetryLimit = 0
	}
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}
