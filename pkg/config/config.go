// Package config loads a site's YAML configuration and hands each component
// its own config struct.
package config

import (
	"time"
)

// Config is the on-disk configuration of one site
type Config struct {
	SiteID          int           `yaml:"site_id" validate:"gte=0"`
	InitPolicy      string        `yaml:"init_policy" validate:"omitempty,oneof=full_election election client client_only"`
	BootstrapMaster bool          `yaml:"bootstrap_master"`
	RetryWait       time.Duration `yaml:"retry_wait" validate:"gt=0"`
	AutoRestart     bool          `yaml:"auto_restart"`
	LogLevel        string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	GenerationFile  string        `yaml:"generation_file"`

	Replication ReplicationConfig `yaml:"replication"`
	Election    ElectionConfig    `yaml:"election"`
	Sites       []SiteConfig      `yaml:"sites" validate:"dive"`
	HTTP        HTTPConfig        `yaml:"http"`
}

// ReplicationConfig configures the master announcement sockets
type ReplicationConfig struct {
	Host              string        `yaml:"host"` // empty selects the host's private IP
	Port              int           `yaml:"port" validate:"gte=0,lte=65535"`
	Scheme            string        `yaml:"scheme" validate:"required,oneof=tcp ipc inproc ws tls+tcp"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" validate:"gt=0"`
	MasterTimeout     time.Duration `yaml:"master_timeout" validate:"gtfield=HeartbeatInterval"`
}

// ElectionConfig configures the vote server and vote requests
type ElectionConfig struct {
	ListenHost  string        `yaml:"listen_host"`
	VotePort    int           `yaml:"vote_port" validate:"gte=0,lte=65535"`
	Priority    int           `yaml:"priority" validate:"gte=0"`
	VoteTimeout time.Duration `yaml:"vote_timeout" validate:"gt=0"`
}

// SiteConfig describes one peer site
type SiteConfig struct {
	ID       int    `yaml:"id" validate:"gte=0"`
	Addr     string `yaml:"addr" validate:"required"`
	VoteAddr string `yaml:"vote_addr" validate:"required"`
	Priority int    `yaml:"priority" validate:"gte=0"`
}

// HTTPConfig configures the metrics and health endpoint; an empty Addr disables it
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a safe default configuration
func DefaultConfig() Config {
	return Config{
		InitPolicy:     "full_election",
		RetryWait:      10 * time.Second,
		AutoRestart:    true,
		LogLevel:       "info",
		GenerationFile: "repmgr-generation.db",
		Replication: ReplicationConfig{
			Port:              5000,
			Scheme:            "tcp",
			HeartbeatInterval: 1 * time.Second,
			MasterTimeout:     5 * time.Second,
		},
		Election: ElectionConfig{
			ListenHost:  "*",
			VotePort:    5001,
			Priority:    1,
			VoteTimeout: 2 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr: ":9100",
		},
	}
}
