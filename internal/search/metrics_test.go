package search

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	if got := len(m.Collectors()); got != 6 {
		t.Errorf("expected 6 collectors, got %d", got)
	}
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("registering twice should fail")
	}
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}
	m.ObserveSearch(OutcomeOK, 0.01, 12)
	m.ObserveSearch(OutcomeOK, 0.02, 3)
	m.ObserveSearch(OutcomeError, 0.001, 0)
	m.ObserveBuild(BuildCommitted, 1.5, 42)
	m.ObserveBuild(BuildFailed, 0.1, 0)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	counts := labelCounts(byName[MetricSearchRequests])
	if counts[OutcomeOK] != 2 || counts[OutcomeError] != 1 {
		t.Errorf("search requests = %v", counts)
	}
	if got := byName[MetricSearchLatency].GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("latency samples = %d, want 3", got)
	}
	if got := byName[MetricSearchCandidates].GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("candidate samples = %d, want 2 (errors excluded)", got)
	}
	builds := labelCounts(byName[MetricIndexBuilds])
	if builds[BuildCommitted] != 1 || builds[BuildFailed] != 1 {
		t.Errorf("builds = %v", builds)
	}
	if got := byName[MetricIndexDocuments].GetMetric()[0].GetGauge().GetValue(); got != 42 {
		t.Errorf("documents gauge = %v, want 42", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSearch(OutcomeOK, 1, 1)
	m.ObserveBuild(BuildCommitted, 1, 1)
	m.SetIndexDocuments(3)
}

func labelCounts(f *dto.MetricFamily) map[string]float64 {
	out := make(map[string]float64)
	if f == nil {
		return out
	}
	for _, metric := range f.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == "outcome" {
				out[lp.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	return out
}
