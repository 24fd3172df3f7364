package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the diff service.
type Metrics struct {
	Upserts       *prometheus.CounterVec
	Comparisons   *prometheus.CounterVec
	CommitLatency prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Upserts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bindiff_upserts_total",
			Help: "Upserts by side and outcome",
		}, []string{"side", "outcome"}),
		Comparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bindiff_comparisons_total",
			Help: "Comparisons by outcome",
		}, []string{"outcome"}),
		CommitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bindiff_store_commit_duration_seconds",
			Help:    "Time spent committing a unit of work",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveUpsert is a no-op on a nil receiver.
func (m *Metrics) ObserveUpsert(side, outcome string) {
	if m == nil {
		return
	}
	m.Upserts.WithLabelValues(side, outcome).Inc()
}

func (m *Metrics) ObserveComparison(outcome string) {
	if m == nil {
		return
	}
	m.Comparisons.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCommit(start time.Time) {
	if m == nil {
		return
	}
	m.CommitLatency.Observe(time.Since(start).Seconds())
}
