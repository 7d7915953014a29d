// Package metrics exposes discovery runs as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"profilescout/pkg/errors"
	"profilescout/pkg/models"
)

const namespace = "profilescout"

// Metrics holds all Prometheus metrics of the application
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal      *prometheus.CounterVec
	CandidatesTotal   prometheus.Counter
	RejectionsTotal   *prometheus.CounterVec
	AcceptedTotal     prometheus.Counter
	PacingWaitSeconds prometheus.Histogram
	RunDuration       prometheus.Histogram
	RunsTotal         *prometheus.CounterVec
}

// New registers the metrics on a fresh registry that also carries the Go and
// process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Planned queries by outcome and source",
		}, []string{"outcome", "source"}),
		CandidatesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Raw search results seen",
		}),
		RejectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Candidates dropped, by reason",
		}, []string{"reason"}),
		AcceptedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_accepted_total",
			Help:      "Profiles admitted to a result set",
		}),
		PacingWaitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pacing_wait_seconds",
			Help:      "Time spent waiting for a request turn",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 60, 120, 300, 900},
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of discovery runs",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 10),
		}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by termination reason",
		}, []string{"termination"}),
	}
}

func (m *Metrics) QueryFinished(q models.Query, outcome string) {
	m.QueriesTotal.WithLabelValues(outcome, string(q.Source)).Inc()
}

func (m *Metrics) CandidatesSeen(n int) {
	m.CandidatesTotal.Add(float64(n))
}

func (m *Metrics) CandidateRejected(reason errors.ErrorType) {
	m.RejectionsTotal.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) ProfileAccepted() {
	m.AcceptedTotal.Inc()
}

func (m *Metrics) RunFinished(s models.RunSummary) {
	m.RunDuration.Observe(s.Duration.Seconds())
	termination := "completed"
	if s.TerminatedEarly {
		termination = s.TerminationReason
	}
	m.RunsTotal.WithLabelValues(termination).Inc()
}

// ObservePacingWait records one pacing delay
func (m *Metrics) ObservePacingWait(d time.Duration) {
	m.PacingWaitSeconds.Observe(d.Seconds())
}

// Registry returns the registry the metrics live in
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
