package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejected prometheus.Counter
}

// New registers the metrics with reg; a nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Rejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "console_ratelimit_rejected_total",
			Help: "Total number of console requests refused by the per-client rate limit",
		}),
	}
}

func (m *Metrics) IncrementRejected() {
	m.Rejected.Inc()
}
