package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records gateway operation outcomes and latencies.
type Metrics struct {
	operationsTotal *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
}

// NewMetrics registers the payment metrics on the given registerer.
// Pass prometheus.DefaultRegisterer for the process-wide registry, or a
// fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_operations_total",
			Help: "Gateway operations by provider, operation and outcome.",
		}, []string{"provider", "operation", "status"}),
		gatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payment_gateway_latency_seconds",
			Help:    "Round-trip latency of gateway calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
	}
}

// Observe records one gateway call.
func (m *Metrics) Observe(provider, operation string, success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.operationsTotal.WithLabelValues(provider, operation, status).Inc()
	m.gatewayLatency.WithLabelValues(provider, operation).Observe(latency.Seconds())
}
