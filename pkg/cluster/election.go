package cluster

import (
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

// Elect runs one election. nvotes <= 0 asks for a simple majority of nsites.
// It returns this site's ID when enough votes were granted, the ID of a master
// some voter already follows, or repmgr.ErrUnavailable.
func (e *Elector) Elect(nsites, nvotes int) (int, error) {
	needed := nvotes
	if needed <= 0 {
		needed = repmgr.Majority(nsites)
	}

	local := e.membership.LocalSite()

	e.mu.Lock()
	e.currentTerm++
	term := e.currentTerm
	e.votedFor = local.ID
	e.mu.Unlock()

	req := VoteRequest{
		MessageType: MessageVoteRequest,
		ElectionID:  uuid.NewString(),
		CandidateID: local.ID,
		Term:        term,
		LastLSN:     local.LastLSN,
		Priority:    local.Priority,
	}
	logger := e.logger.With(logging.ElectionID(req.ElectionID), logging.Term(term))
	logger.Debug("election started", logging.Votes(nsites, needed))

	granted := 1
	for _, resp := range e.requestVotes(e.membership.Peers(), req) {
		if resp.Term > term {
			e.observeTerm(resp.Term)
		}
		if resp.MasterID != repmgr.InvalidEID && resp.MasterID != local.ID {
			logger.Info("voter follows a master", logging.Int("voter", resp.VoterID), logging.Master(resp.MasterID))
			return resp.MasterID, nil
		}
		if resp.VoteGranted && resp.Term == term {
			granted++
			continue
		}
		logger.Debug("vote denied", logging.Int("voter", resp.VoterID), logging.String("reason", resp.Reason))
	}

	if granted >= needed {
		logger.Info("election won", logging.Int("granted", granted), logging.Int("needed", needed))
		return local.ID, nil
	}

	logger.Info("election without quorum", logging.Int("granted", granted), logging.Int("needed", needed))
	return repmgr.InvalidEID, repmgr.ErrUnavailable
}

// observeTerm adopts a higher term seen in a response
func (e *Elector) observeTerm(term uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if term > e.currentTerm {
		e.currentTerm = term
		e.votedFor = repmgr.InvalidEID
	}
}

// Ensure Elector and Membership serve the coordinator
var (
	_ repmgr.Elector     = (*Elector)(nil)
	_ repmgr.SiteCounter = (*Membership)(nil)
)
