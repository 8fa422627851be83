package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initElectionMetrics() {
	r.ElectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "repmgr_elections_total",
			Help: "Total number of elections run by the coordinator",
		},
		[]string{"result"}, // won, lost, unavailable, failed
	)

	r.ElectionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repmgr_election_duration_seconds",
			Help:    "Time spent inside the vote primitive per election",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
	)

	r.VotesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "repmgr_votes_total",
			Help: "Vote requests answered by this site",
		},
		[]string{"granted"},
	)
}
