package metrics

import (
	"strconv"
	"time"
)

// Election results
const (
	ResultWon         = "won"
	ResultLost        = "lost"
	ResultUnavailable = "unavailable"
	ResultFailed      = "failed"
)

// RecordElection records one pass through the vote primitive
func (r *Registry) RecordElection(result string, duration time.Duration) {
	r.ElectionsTotal.WithLabelValues(result).Inc()
	r.ElectionDuration.Observe(duration.Seconds())
}

// RecordVote records a vote decision made for another candidate
func (r *Registry) RecordVote(granted bool) {
	r.VotesTotal.WithLabelValues(strconv.FormatBool(granted)).Inc()
}

// RecordCoordinatorStart records a launched coordinator task
func (r *Registry) RecordCoordinatorStart(reason string) {
	r.CoordinatorStartsTotal.WithLabelValues(reason).Inc()
}

// RecordCoordinatorWait records how a coordinator wait ended
func (r *Registry) RecordCoordinatorWait(timedOut bool) {
	if timedOut {
		r.CoordinatorWaitsTotal.WithLabelValues("timeout").Inc()
		return
	}
	r.CoordinatorWaitsTotal.WithLabelValues("woken").Inc()
}

// SetCoordinatorRunning flips the running gauge
func (r *Registry) SetCoordinatorRunning(running bool) {
	r.CoordinatorRunning.Set(boolToFloat(running))
}

// SetMasterKnown flips the master-known gauge
func (r *Registry) SetMasterKnown(known bool) {
	r.MasterKnown.Set(boolToFloat(known))
}

// SetRole sets the current replication role
func (r *Registry) SetRole(role string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Role.WithLabelValues("master").Set(0)
	r.Role.WithLabelValues("client").Set(0)
	r.Role.WithLabelValues(role).Set(1)
}

// RecordAnnouncement counts a master announcement in the given direction
func (r *Registry) RecordAnnouncement(direction string) {
	r.MasterAnnouncementsTotal.WithLabelValues(direction).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// RecordMasterLoss counts a master declared lost after missed heartbeats
func (r *Registry) RecordMasterLoss() {
	r.MasterLossDetectionsTotal.Inc()
}
