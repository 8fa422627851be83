package cluster

import "time"

// Config defines how this site takes part in elections
type Config struct {
	SiteID             int           // This site's ID within the group
	Priority           int           // Election priority advertised to voters
	VoteRequestTimeout time.Duration // Time to wait for all vote responses (default: 2s)
}

// DefaultConfig returns a safe default configuration
func DefaultConfig() Config {
	return Config{
		Priority:           1,
		VoteRequestTimeout: 2 * time.Second,
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.SiteID < 0 {
		return ErrInvalidSiteID
	}
	if c.Priority < 0 {
		return ErrInvalidPriority
	}
	if c.VoteRequestTimeout <= 0 {
		return ErrInvalidVoteTimeout
	}
	return nil
}
