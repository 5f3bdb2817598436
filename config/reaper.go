package config

import "time"

// ReaperConfig contains retention reaper configuration.
type ReaperConfig struct {
	// Interval is the sweep cadence.
	Interval time.Duration `env:"INTERVAL" envDefault:"1h"`

	// DeliveredMaxAge is how long delivered records are retained before the
	// sweep removes them.
	DeliveredMaxAge time.Duration `env:"DELIVERED_MAX_AGE" envDefault:"720h"`

	// BatchSize caps how many rows one delete statement removes.
	BatchSize int `env:"BATCH_SIZE" envDefault:"100"`
}

// Sanitize applies guardrails to reaper configuration values.
func (c *ReaperConfig) Sanitize() {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.DeliveredMaxAge <= 0 {
		c.DeliveredMaxAge = 720 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
}
