package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initReplicationMetrics() {
	r.MasterKnown = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "repmgr_master_known",
			Help: "Whether this site currently knows a valid master (1=yes, 0=no)",
		},
	)

	r.Generation = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "repmgr_generation",
			Help: "Last leadership generation stashed by this site",
		},
	)

	r.Role = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repmgr_role",
			Help: "Replication role of this site (1 for current role, 0 otherwise)",
		},
		[]string{"role"}, // master, client
	)

	r.MasterAnnouncementsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "repmgr_master_announcements_total",
			Help: "Master announcements sent or received",
		},
		[]string{"direction"}, // sent, received
	)

	r.MasterLossDetectionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "repmgr_master_loss_detections_total",
			Help: "Times a client stopped hearing from its master",
		},
	)
}
