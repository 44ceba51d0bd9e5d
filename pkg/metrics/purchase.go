package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PurchaseMetrics records confirmation outcomes per entry path.
type PurchaseMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewPurchaseMetrics registers the purchase metrics on the provided registerer.
func NewPurchaseMetrics(reg prometheus.Registerer) *PurchaseMetrics {
	if reg == nil {
		return &PurchaseMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "purchase_confirmation_duration_seconds",
		Help:    "Duration of payment confirmations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_confirmation_success",
		Help: "Successful payment confirmations.",
	}, []string{"path"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_confirmation_failure",
		Help: "Failed payment confirmations.",
	}, []string{"path"})
	reg.MustRegister(duration, success, failure)
	return &PurchaseMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the confirmation duration for the named path.
func (p *PurchaseMetrics) ObserveDuration(path string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(path)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named path.
func (p *PurchaseMetrics) IncSuccess(path string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncFailure increments the failure counter for the named path.
func (p *PurchaseMetrics) IncFailure(path string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(path)).Inc()
}

func normalizeLabel(path string) string {
	if path == "" {
		return "unknown"
	}
	return path
}
