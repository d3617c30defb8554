package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics tracks client status reconciliation.
type ReconcileMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	m := &ReconcileMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_requests_total",
			Help:      "Reconciliation requests, by operation and how they were served (cache, joined, started, error).",
		}, []string{"operation", "source"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_work_duration_seconds",
			Help:      "Duration of shared reconciliation work.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (r *ReconcileMetrics) IncRequest(operation, source string) {
	if r == nil || r.requests == nil {
		return
	}
	r.requests.WithLabelValues(normalizeLabel(operation), normalizeLabel(source)).Inc()
}

func (r *ReconcileMetrics) ObserveWork(operation string, d time.Duration) {
	if r == nil || r.latency == nil {
		return
	}
	r.latency.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}
