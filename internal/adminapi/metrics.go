package adminapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbound admin API traffic.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
	CircuitOpen     prometheus.Gauge
}

// NewMetrics registers the client metrics with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_adminapi_request_duration_seconds",
			Help:    "Duration of admin API calls by operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_adminapi_requests_total",
			Help: "Admin API calls by operation and outcome",
		}, []string{"op", "outcome"}),
		CircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "console_adminapi_circuit_open",
			Help: "1 while the admin API circuit breaker is open",
		}),
	}
}

func (m *Metrics) observe(op, outcome string, start time.Time) {
	m.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.Requests.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) setCircuit(open bool) {
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
