package config

import "time"

// DraftConfig contains draft controller configuration.
type DraftConfig struct {
	// AutosaveDebounce is the quiet period after the last edit before the
	// in-progress draft is persisted.
	AutosaveDebounce time.Duration `env:"AUTOSAVE_DEBOUNCE" envDefault:"2s"`
}

// Sanitize applies guardrails to draft configuration values.
func (c *DraftConfig) Sanitize() {
	if c.AutosaveDebounce <= 0 {
		c.AutosaveDebounce = 2 * time.Second
	}
}
