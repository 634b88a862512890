package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for dashboard aggregation.
type Metrics struct {
	AggregationLatency  prometheus.Histogram
	AggregationFailures *prometheus.CounterVec
}

// New registers and returns dashboard metrics collectors.
func New() *Metrics {
	return &Metrics{
		AggregationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idadmin_dashboard_aggregation_latency_seconds",
			Help:    "Latency of full dashboard aggregations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		AggregationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idadmin_dashboard_counter_failures_total",
			Help: "Failed dashboard sub-queries, labeled by counter name",
		}, []string{"counter"}),
	}
}

func (m *Metrics) ObserveAggregationLatency(d time.Duration) {
	m.AggregationLatency.Observe(d.Seconds())
}

func (m *Metrics) IncrementCounterFailure(name string) {
	m.AggregationFailures.WithLabelValues(name).Inc()
}
