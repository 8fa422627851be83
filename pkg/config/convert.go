package config

import (
	"net"
	"strconv"

	"github.com/dd0wney/cluso-repmgr/pkg/cluster"
	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/replication"
	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

// GroupConfig returns the coordinator settings
func (c *Config) GroupConfig() (repmgr.Config, error) {
	policy, err := repmgr.ParseInitPolicy(c.InitPolicy)
	if err != nil {
		return repmgr.Config{}, err
	}
	return repmgr.Config{
		SiteID:      c.SiteID,
		InitPolicy:  policy,
		RetryWait:   c.RetryWait,
		AutoRestart: c.AutoRestart,
	}, nil
}

// ClusterConfig returns the elector settings
func (c *Config) ClusterConfig() cluster.Config {
	return cluster.Config{
		SiteID:             c.SiteID,
		Priority:           c.Election.Priority,
		VoteRequestTimeout: c.Election.VoteTimeout,
	}
}

// ReplicationConfig returns the announcement settings
func (c *Config) ReplicationConfig() replication.Config {
	return replication.Config{
		Scheme:            c.Replication.Scheme,
		HeartbeatInterval: c.Replication.HeartbeatInterval,
		MasterTimeout:     c.Replication.MasterTimeout,
	}
}

// Level returns the configured log level
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// Membership builds the site table: this site plus every configured peer
func (c *Config) Membership() (*cluster.Membership, error) {
	m := cluster.NewMembership(cluster.Site{
		ID:       c.SiteID,
		Addr:     c.localAddr(),
		VoteAddr: c.VoteListenURL(),
		Priority: c.Election.Priority,
	})
	for _, site := range c.Sites {
		if err := m.AddSite(cluster.Site{
			ID:       site.ID,
			Addr:     site.Addr,
			VoteAddr: site.VoteAddr,
			Priority: site.Priority,
		}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// PeerAddrs returns every peer's replication address
func (c *Config) PeerAddrs() []string {
	addrs := make([]string, 0, len(c.Sites))
	for _, site := range c.Sites {
		addrs = append(addrs, site.Addr)
	}
	return addrs
}

// VoteListenURL returns the URL the vote server listens on
func (c *Config) VoteListenURL() string {
	host := c.Election.ListenHost
	if host == "" {
		host = "*"
	}
	return replication.Endpoint(c.Replication.Scheme, joinHostPort(host, c.Election.VotePort))
}

func (c *Config) localAddr() string {
	return joinHostPort(c.Replication.Host, c.Replication.Port)
}

func joinHostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
