package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCoordinatorMetrics() {
	r.CoordinatorStartsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "repmgr_coordinator_starts_total",
			Help: "Coordinator tasks launched by the entry point",
		},
		[]string{"reason"}, // started, restarted
	)

	r.CoordinatorSignalsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "repmgr_coordinator_signals_total",
			Help: "Entry point calls that woke an already running coordinator",
		},
	)

	r.CoordinatorWaitsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "repmgr_coordinator_waits_total",
			Help: "Completed coordinator waits by outcome",
		},
		[]string{"outcome"}, // timeout, woken
	)

	r.CoordinatorFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "repmgr_coordinator_failures_total",
			Help: "Coordinator tasks that terminated with an error",
		},
	)

	r.CoordinatorRunning = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "repmgr_coordinator_running",
			Help: "Whether a coordinator task is running (1=yes, 0=no)",
		},
	)
}
