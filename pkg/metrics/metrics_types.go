package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for a replication site
type Registry struct {
	// Election Metrics
	ElectionsTotal   *prometheus.CounterVec
	ElectionDuration prometheus.Histogram
	VotesTotal       *prometheus.CounterVec

	// Coordinator Metrics
	CoordinatorStartsTotal   *prometheus.CounterVec
	CoordinatorSignalsTotal  prometheus.Counter
	CoordinatorWaitsTotal    *prometheus.CounterVec
	CoordinatorFailuresTotal prometheus.Counter
	CoordinatorRunning       prometheus.Gauge

	// Replication Metrics
	MasterKnown               prometheus.Gauge
	Generation                prometheus.Gauge
	Role                      *prometheus.GaugeVec
	MasterAnnouncementsTotal  *prometheus.CounterVec
	MasterLossDetectionsTotal prometheus.Counter

	registry *prometheus.Registry
	mu       sync.Mutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initElectionMetrics()
	r.initCoordinatorMetrics()
	r.initReplicationMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
