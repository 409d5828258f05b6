// Package metrics exposes search activity as Prometheus collectors. A Metrics
// value is both a feasibility.Recorder and a search.Observer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MikeSquared-Agency/Elicit/internal/search"
)

const namespace = "elicit"

type Metrics struct {
	queries            prometheus.Counter
	decisions          *prometheus.CounterVec
	feasibilityChecks  *prometheus.CounterVec
	feasibilityLatency prometheus.Histogram
	runs               *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses the default
// registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		queries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_queries_total",
			Help:      "Preference queries answered by the oracle.",
		}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Candidate classifications by outcome.",
		}, []string{"decision"}),
		feasibilityChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feasibility_checks_total",
			Help:      "LP feasibility checks by result.",
		}, []string{"result"}),
		feasibilityLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feasibility_check_duration_seconds",
			Help:      "Time spent in a single LP feasibility check.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by status.",
		}, []string{"status"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
}

// ObserveFeasibility records one LP check.
func (m *Metrics) ObserveFeasibility(feasible bool, d time.Duration, err error) {
	result := "infeasible"
	switch {
	case err != nil:
		result = "error"
	case feasible:
		result = "feasible"
	}
	m.feasibilityChecks.WithLabelValues(result).Inc()
	m.feasibilityLatency.Observe(d.Seconds())
}

// OnStep records one classified candidate.
func (m *Metrics) OnStep(step search.Step) {
	m.decisions.WithLabelValues(step.Decision.String()).Inc()
	if step.Queried {
		m.queries.Inc()
	}
}

// ObserveRun records a finished run. status is completed or failed.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(d.Seconds())
}
