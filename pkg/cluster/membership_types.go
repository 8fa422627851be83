package cluster

import (
	"sync"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
)

// Site describes one member of the replication group
type Site struct {
	ID       int    `json:"id"`        // Group-wide site ID
	Addr     string `json:"addr"`      // Replication address (host:port)
	VoteAddr string `json:"vote_addr"` // Vote endpoint (host:port)
	Priority int    `json:"priority"`  // Election priority
	LastLSN  uint64 `json:"last_lsn"`  // Last applied log position
}

// Membership tracks every site in the group, this one included.
//
// Concurrent Safety:
// 1. All public methods use RWMutex for thread-safe access
// 2. Read operations return copies, never the stored pointers
// 3. The local site cannot be removed
type Membership struct {
	sites   map[int]*Site
	localID int
	mu      sync.RWMutex
	logger  logging.Logger
}

// NewMembership creates a site table holding only the local site
func NewMembership(local Site) *Membership {
	localCopy := local
	return &Membership{
		sites:   map[int]*Site{local.ID: &localCopy},
		localID: local.ID,
		logger:  logging.DefaultLogger().With(logging.Component("membership"), logging.Site(local.ID)),
	}
}
