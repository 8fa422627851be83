package repmgr

import "errors"

// Configuration errors
var (
	ErrInvalidSiteID       = errors.New("site ID must not be negative")
	ErrInvalidRetryWait    = errors.New("election retry wait must be positive")
	ErrInvalidInitPolicy   = errors.New("unknown init policy")
	ErrMissingCollaborator = errors.New("group collaborator is nil")
)

// Coordinator errors
var (
	// ErrUnavailable is returned by an Elector when no quorum could be reached.
	// The coordinator treats it as a transient condition.
	ErrUnavailable        = errors.New("election unavailable: no quorum")
	ErrShuttingDown       = errors.New("replication group is shutting down")
	ErrAlreadyJoined      = errors.New("runnable already joined")
	ErrNotStarted         = errors.New("runnable not started")
	ErrUnexpectedElection = errors.New("unexpected election failure")
)
