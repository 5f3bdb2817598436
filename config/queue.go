package config

import "time"

// QueueConfig contains submission queue configuration.
type QueueConfig struct {
	// Interval is the periodic re-check cadence while online.
	Interval time.Duration `env:"INTERVAL" envDefault:"30s"`

	// MaxAttempts is the number of failed delivery attempts before a record
	// is marked failed. The attempt counter is process-local and resets on
	// restart.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"3"`

	// RetryBackoff is the base delay before a failed record becomes due
	// again; the effective delay grows linearly with the attempt count.
	// Zero disables backoff.
	RetryBackoff time.Duration `env:"RETRY_BACKOFF" envDefault:"5s"`

	// DeliveryTimeout bounds one record's complete delivery attempt
	// (all attachment uploads plus the record submission).
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to queue configuration values.
func (c *QueueConfig) Sanitize() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 60 * time.Second
	}
}
