package replication

import "errors"

// Configuration errors
var (
	ErrInvalidScheme         = errors.New("socket scheme cannot be empty")
	ErrInvalidHeartbeat      = errors.New("heartbeat interval must be positive")
	ErrMasterTimeoutTooSmall = errors.New("master timeout must be greater than heartbeat interval")
)

// Role errors
var (
	ErrUnknownRole      = errors.New("unknown replication role")
	ErrEmptyAddress     = errors.New("replication address cannot be empty")
	ErrNoPrivateAddress = errors.New("no private address found for this host")
)
