package config

// StoreConfig contains durable record store configuration.
type StoreConfig struct {
	// Path is the SQLite database file location.
	Path string `env:"PATH" envDefault:"fieldsync.db"`

	// QuotaBytes caps the database file size. Zero disables the quota and
	// usage estimates report a zero quota.
	QuotaBytes int64 `env:"QUOTA_BYTES" envDefault:"0"`
}

// Sanitize applies guardrails to store configuration values.
func (c *StoreConfig) Sanitize() {
	if c.Path == "" {
		c.Path = "fieldsync.db"
	}
	if c.QuotaBytes < 0 {
		c.QuotaBytes = 0
	}
}
