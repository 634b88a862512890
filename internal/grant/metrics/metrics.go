package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for grant administration operations.
type Metrics struct {
	GrantsDeleted         *prometheus.CounterVec
	DeletionsRejected     *prometheus.CounterVec
	SearchLatency         prometheus.Histogram
	StoreOperationLatency *prometheus.HistogramVec
	GrantsPerSubject      prometheus.Histogram
}

// New registers and returns grant metrics collectors.
func New() *Metrics {
	return &Metrics{
		GrantsDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idadmin_grants_deleted_total",
			Help: "Total number of grants deleted, labeled by deletion scope (key or subject)",
		}, []string{"scope"}),
		DeletionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idadmin_grant_deletions_rejected_total",
			Help: "Deletion commands rejected because the target did not exist, labeled by scope",
		}, []string{"scope"}),
		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idadmin_grant_search_latency_seconds",
			Help:    "Latency of paged grant searches in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		StoreOperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idadmin_grant_store_operation_latency_seconds",
			Help:    "Latency of grant store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		GrantsPerSubject: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idadmin_grants_per_subject",
			Help:    "Distribution of grant counts per subject observed in listings",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

func (m *Metrics) IncrementGrantsDeleted(scope string, count int) {
	m.GrantsDeleted.WithLabelValues(scope).Add(float64(count))
}

func (m *Metrics) IncrementDeletionsRejected(scope string) {
	m.DeletionsRejected.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveSearchLatency(d time.Duration) {
	m.SearchLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveStoreOperation(operation string, d time.Duration) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) ObserveGrantsPerSubject(count int) {
	m.GrantsPerSubject.Observe(float64(count))
}
