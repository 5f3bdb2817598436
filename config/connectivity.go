package config

import "time"

// ConnectivityConfig contains connectivity probe configuration. When ProbeURL
// is empty no probe runs and the monitor assumes online unless the host feeds
// it a signal.
type ConnectivityConfig struct {
	// ProbeURL is the endpoint HEAD-checked for reachability.
	ProbeURL string `env:"PROBE_URL"`

	// ProbeInterval is the reachability check cadence.
	ProbeInterval time.Duration `env:"PROBE_INTERVAL" envDefault:"30s"`

	// SlowThreshold marks the link as slow when a probe round trip exceeds it.
	SlowThreshold time.Duration `env:"SLOW_THRESHOLD" envDefault:"2s"`
}

// Sanitize applies guardrails to connectivity configuration values.
func (c *ConnectivityConfig) Sanitize() {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 30 * time.Second
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 2 * time.Second
	}
}
