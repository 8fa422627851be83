package cluster

import "errors"

// Configuration errors
var (
	ErrInvalidSiteID      = errors.New("site ID cannot be negative")
	ErrInvalidPriority    = errors.New("priority cannot be negative")
	ErrInvalidVoteTimeout = errors.New("vote request timeout must be positive")
	ErrMissingVoteAddr    = errors.New("peer site needs a vote address")
)

// Membership errors
var (
	ErrSiteNotFound      = errors.New("site not found in membership")
	ErrSiteAlreadyExists = errors.New("site already exists in membership")
	ErrCannotRemoveSelf  = errors.New("cannot remove the local site")
)

// Transport errors
var (
	ErrVoteServerStarted = errors.New("vote server already started")
	ErrMalformedMessage  = errors.New("malformed vote message")
)
