package modtl

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ZaguanLabs/modtl/placeholder"
)

// Metrics holds the translator's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// SegmentsTotal counts segment outcomes: translated, cached, repaired, failed
	SegmentsTotal *prometheus.CounterVec
	// FailuresTotal counts validation failures by kind
	FailuresTotal *prometheus.CounterVec
	// AutofixStepsTotal counts autofix steps that changed a candidate
	AutofixStepsTotal *prometheus.CounterVec
	// RetriesTotal counts retry decisions
	RetriesTotal *prometheus.CounterVec
	// ProviderLatency tracks provider batch latency
	ProviderLatency prometheus.Histogram
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SegmentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modtl_segments_total",
				Help: "Total number of segments processed by outcome",
			},
			[]string{"outcome"},
		),
		FailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modtl_validation_failures_total",
				Help: "Total number of rejected candidates by failure kind",
			},
			[]string{"kind"},
		),
		AutofixStepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modtl_autofix_steps_total",
				Help: "Total number of autofix steps applied",
			},
			[]string{"step"},
		),
		RetriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modtl_retry_decisions_total",
				Help: "Total number of retry decisions",
			},
			[]string{"decision"},
		),
		ProviderLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modtl_provider_latency_seconds",
				Help:    "Provider batch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) segment(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SegmentsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) failure(r *placeholder.FailureReport) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(string(r.Kind)).Inc()
}

func (m *Metrics) autofix(steps []placeholder.FixStep) {
	if m == nil {
		return
	}
	for _, s := range steps {
		m.AutofixStepsTotal.WithLabelValues(string(s.Name)).Inc()
	}
}

func (m *Metrics) observeRetry(d RetryDecision) {
	if m == nil {
		return
	}
	label := "stop"
	switch {
	case d.ShouldRetry && d.UsedHint:
		label = "retry_hint"
	case d.ShouldRetry:
		label = "retry_backoff"
	}
	m.RetriesTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) providerCall(start time.Time) {
	if m == nil {
		return
	}
	m.ProviderLatency.Observe(time.Since(start).Seconds())
}
