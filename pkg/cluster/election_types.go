package cluster

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/metrics"
	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

// Vote message types
const (
	MessageVoteRequest  = "vote_request"
	MessageVoteResponse = "vote_response"
)

// Reasons a vote is denied
const (
	ReasonMasterKnown  = "master already known"
	ReasonStaleTerm    = "term is older than current term"
	ReasonAlreadyVoted = "already voted in this term"
	ReasonBehind       = "candidate LSN is behind local LSN"
)

// VoteRequest is sent by a candidate to every peer
type VoteRequest struct {
	MessageType string `json:"message_type"` // "vote_request"
	ElectionID  string `json:"election_id"`
	CandidateID int    `json:"candidate_id"`
	Term        uint64 `json:"term"`
	LastLSN     uint64 `json:"last_lsn"`
	Priority    int    `json:"priority"`
}

// VoteResponse is returned in response to a vote request
type VoteResponse struct {
	MessageType string `json:"message_type"` // "vote_response"
	ElectionID  string `json:"election_id"`
	VoterID     int    `json:"voter_id"`
	Term        uint64 `json:"term"`
	VoteGranted bool   `json:"vote_granted"`
	MasterID    int    `json:"master_id"` // repmgr.InvalidEID when the voter knows no master
	Reason      string `json:"reason,omitempty"`
}

// VoteTransport delivers one vote request and waits for its response
type VoteTransport interface {
	RequestVote(addr string, req VoteRequest, timeout time.Duration) (VoteResponse, error)
}

// Elector runs term-based elections among the membership's sites.
//
// Concurrent Safety:
// 1. Term and vote state are protected by mu
// 2. Vote requests fan out on their own goroutines and report on a buffered channel
// 3. mu is never held across a network call
type Elector struct {
	config     Config
	membership *Membership
	transport  VoteTransport
	masterFn   func() int

	currentTerm uint64
	votedFor    int
	mu          sync.Mutex

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// ElectorOption customizes an Elector
type ElectorOption func(*Elector)

// WithMasterSource tells the responder side which master this site knows of
func WithMasterSource(fn func() int) ElectorOption {
	return func(e *Elector) {
		e.masterFn = fn
	}
}

// WithElectorLogger sets the elector's logger
func WithElectorLogger(logger logging.Logger) ElectorOption {
	return func(e *Elector) {
		e.logger = logger
	}
}

// WithElectorMetrics sets the registry votes are reported to; nil disables metrics
func WithElectorMetrics(registry *metrics.Registry) ElectorOption {
	return func(e *Elector) {
		e.metricsRegistry = registry
	}
}

// NewElector creates an elector for the local site of membership
func NewElector(config Config, membership *Membership, transport VoteTransport, opts ...ElectorOption) *Elector {
	e := &Elector{
		config:          config,
		membership:      membership,
		transport:       transport,
		votedFor:        repmgr.InvalidEID,
		logger:          logging.DefaultLogger(),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.Component("elector"), logging.Site(config.SiteID))
	return e
}

// CurrentTerm returns the highest term this site has seen
func (e *Elector) CurrentTerm() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTerm
}

func (e *Elector) knownMaster() int {
	if e.masterFn == nil {
		return repmgr.InvalidEID
	}
	return e.masterFn()
}
