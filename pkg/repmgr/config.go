package repmgr

import "time"

// Config defines how a replication group coordinates elections
type Config struct {
	SiteID      int           // Environment ID of this site
	InitPolicy  InitPolicy    // Behavior before any master has been found
	RetryWait   time.Duration // Upper bound on each coordinator wait (default: 10s)
	AutoRestart bool          // Restart a failed coordinator after RetryWait (default: true)
}

// DefaultConfig returns a safe default configuration
func DefaultConfig() Config {
	return Config{
		SiteID:      0,
		InitPolicy:  PolicyFullElection,
		RetryWait:   10 * time.Second,
		AutoRestart: true,
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.SiteID < 0 {
		return ErrInvalidSiteID
	}
	if c.RetryWait <= 0 {
		return ErrInvalidRetryWait
	}
	if c.InitPolicy != PolicyFullElection && c.InitPolicy != PolicyClient {
		return ErrInvalidInitPolicy
	}
	return nil
}
