package cluster

import (
	"time"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

// requestVotes sends req to every peer and collects whatever answers arrive
// before the vote timeout. Unreachable peers are missing votes.
func (e *Elector) requestVotes(peers []Site, req VoteRequest) []VoteResponse {
	if len(peers) == 0 {
		return nil
	}

	voteChan := make(chan VoteResponse, len(peers))
	errChan := make(chan struct{}, len(peers))
	for _, peer := range peers {
		go func(peer Site) {
			resp, err := e.transport.RequestVote(peer.VoteAddr, req, e.config.VoteRequestTimeout)
			if err != nil {
				e.logger.Debug("vote request failed",
					logging.Int("peer", peer.ID), logging.Addr(peer.VoteAddr), logging.Error(err))
				errChan <- struct{}{}
				return
			}
			voteChan <- resp
		}(peer)
	}

	return collectVotes(len(peers), voteChan, errChan, e.config.VoteRequestTimeout)
}

// collectVotes gathers up to expected responses or stops at the timeout
func collectVotes(expected int, voteChan <-chan VoteResponse, errChan <-chan struct{}, timeout time.Duration) []VoteResponse {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	responses := make([]VoteResponse, 0, expected)
	for received := 0; received < expected; received++ {
		select {
		case resp := <-voteChan:
			responses = append(responses, resp)
		case <-errChan:
		case <-timer.C:
			return responses
		}
	}
	return responses
}

// HandleVoteRequest decides whether this site votes for the candidate
func (e *Elector) HandleVoteRequest(req VoteRequest) VoteResponse {
	local := e.membership.LocalSite()
	master := e.knownMaster()

	e.mu.Lock()
	defer e.mu.Unlock()

	resp := VoteResponse{
		MessageType: MessageVoteResponse,
		ElectionID:  req.ElectionID,
		VoterID:     local.ID,
		MasterID:    repmgr.InvalidEID,
	}

	deny := func(reason string) VoteResponse {
		resp.Term = e.currentTerm
		resp.Reason = reason
		e.recordVote(false)
		e.logger.Debug("vote denied",
			logging.Int("candidate", req.CandidateID), logging.Term(req.Term), logging.String("reason", reason))
		return resp
	}

	if master != repmgr.InvalidEID && master != req.CandidateID {
		resp.MasterID = master
		return deny(ReasonMasterKnown)
	}
	if req.Term < e.currentTerm {
		return deny(ReasonStaleTerm)
	}
	if req.Term > e.currentTerm {
		e.currentTerm = req.Term
		e.votedFor = repmgr.InvalidEID
	}
	if e.votedFor != repmgr.InvalidEID && e.votedFor != req.CandidateID {
		return deny(ReasonAlreadyVoted)
	}
	if req.LastLSN < local.LastLSN {
		return deny(ReasonBehind)
	}

	e.votedFor = req.CandidateID
	resp.Term = e.currentTerm
	resp.VoteGranted = true
	e.recordVote(true)
	e.logger.Debug("vote granted", logging.Int("candidate", req.CandidateID), logging.Term(req.Term))
	return resp
}

func (e *Elector) recordVote(granted bool) {
	if e.metricsRegistry != nil {
		e.metricsRegistry.RecordVote(granted)
	}
}
