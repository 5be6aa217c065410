package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports coordinator operations as a result
// counter and a latency histogram, both labelled by operation.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the collectors on reg. A nil reg
// uses the default registerer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genecatalog",
			Subsystem: "coordinator",
			Name:      "operations_total",
			Help:      "Coordinator operations by outcome.",
		}, []string{"operation", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "genecatalog",
			Subsystem: "coordinator",
			Name:      "operation_duration_seconds",
			Help:      "Coordinator operation latency.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
	}
}

// Observe implements MetricsRecorder.
func (p *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	p.operations.WithLabelValues(operation, status).Inc()
	p.latency.WithLabelValues(operation).Observe(duration.Seconds())
}
