package replication

import "time"

// Config defines how masters announce themselves and how clients watch them
type Config struct {
	Scheme            string        // Socket scheme for announcements (default: tcp)
	HeartbeatInterval time.Duration // Master announcement period (default: 1s)
	MasterTimeout     time.Duration // Silence before a client declares the master lost (default: 5s)
}

// DefaultConfig returns a safe default configuration
func DefaultConfig() Config {
	return Config{
		Scheme:            "tcp",
		HeartbeatInterval: 1 * time.Second,
		MasterTimeout:     5 * time.Second,
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Scheme == "" {
		return ErrInvalidScheme
	}
	if c.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeat
	}
	if c.MasterTimeout <= c.HeartbeatInterval {
		return ErrMasterTimeoutTooSmall
	}
	return nil
}
