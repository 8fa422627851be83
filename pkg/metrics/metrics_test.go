package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.ElectionsTotal == nil || r.CoordinatorStartsTotal == nil || r.Role == nil {
		t.Error("Registry metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "repmgr_") {
			t.Errorf("Unexpected metric name %q", mf.GetName())
		}
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordElection(t *testing.T) {
	r := NewRegistry()

	r.RecordElection(ResultUnavailable, 20*time.Millisecond)
	r.RecordElection(ResultUnavailable, 30*time.Millisecond)
	r.RecordElection(ResultWon, time.Second)

	if got := counterValue(t, r.ElectionsTotal.WithLabelValues(ResultUnavailable)); got != 2 {
		t.Errorf("unavailable elections = %v, want 2", got)
	}
	if got := counterValue(t, r.ElectionsTotal.WithLabelValues(ResultWon)); got != 1 {
		t.Errorf("won elections = %v, want 1", got)
	}

	var m dto.Metric
	if err := r.ElectionDuration.Write(&m); err != nil {
		t.Fatalf("Failed to write histogram: %v", err)
	}
	if m.GetHistogram().GetSampleCount() != 3 {
		t.Errorf("duration samples = %d, want 3", m.GetHistogram().GetSampleCount())
	}
}

func TestRecordCoordinatorWait(t *testing.T) {
	r := NewRegistry()

	r.RecordCoordinatorWait(true)
	r.RecordCoordinatorWait(false)
	r.RecordCoordinatorWait(false)

	if got := counterValue(t, r.CoordinatorWaitsTotal.WithLabelValues("timeout")); got != 1 {
		t.Errorf("timeouts = %v, want 1", got)
	}
	if got := counterValue(t, r.CoordinatorWaitsTotal.WithLabelValues("woken")); got != 2 {
		t.Errorf("wakeups = %v, want 2", got)
	}
}

func TestSetRole(t *testing.T) {
	r := NewRegistry()

	r.SetRole("client")
	r.SetRole("master")

	if got := gaugeValue(t, r.Role.WithLabelValues("master")); got != 1 {
		t.Errorf("master role gauge = %v, want 1", got)
	}
	if got := gaugeValue(t, r.Role.WithLabelValues("client")); got != 0 {
		t.Errorf("client role gauge = %v, want 0", got)
	}
}

func TestGauges(t *testing.T) {
	r := NewRegistry()

	r.SetCoordinatorRunning(true)
	r.SetMasterKnown(true)
	r.SetMasterKnown(false)
	r.RecordVote(true)
	r.RecordAnnouncement("sent")

	if got := gaugeValue(t, r.CoordinatorRunning); got != 1 {
		t.Errorf("coordinator running = %v, want 1", got)
	}
	if got := gaugeValue(t, r.MasterKnown); got != 0 {
		t.Errorf("master known = %v, want 0", got)
	}
	if got := counterValue(t, r.VotesTotal.WithLabelValues("true")); got != 1 {
		t.Errorf("granted votes = %v, want 1", got)
	}
	if got := counterValue(t, r.MasterAnnouncementsTotal.WithLabelValues("sent")); got != 1 {
		t.Errorf("sent announcements = %v, want 1", got)
	}
}
