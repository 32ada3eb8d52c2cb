package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the users module: list cache behaviour,
// mutation outcomes and the creation form's availability checks.
type Metrics struct {
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	RefreshDuration    prometheus.Histogram
	RefreshFailures    prometheus.Counter
	Mutations          *prometheus.CounterVec
	AvailabilityChecks *prometheus.CounterVec
	StaleResults       *prometheus.CounterVec
	SupersededEdits    *prometheus.CounterVec
	OpenForms          prometheus.Gauge
}

// New registers the users metrics with reg. A nil reg leaves them unregistered,
// which keeps parallel tests from colliding on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_users_list_cache_hits_total",
			Help: "User list reads served from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_users_list_cache_misses_total",
			Help: "User list reads that had to fetch from the admin API",
		}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "console_users_refresh_duration_seconds",
			Help:    "Duration of user list refreshes from the admin API",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		RefreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_users_refresh_failures_total",
			Help: "User list refreshes that failed, leaving the previous list in place",
		}),
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_users_mutations_total",
			Help: "User mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		AvailabilityChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_form_availability_checks_total",
			Help: "Remote availability checks by field and result",
		}, []string{"field", "result"}),
		StaleResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_form_stale_results_total",
			Help: "Availability results dropped because a newer edit superseded them",
		}, []string{"field"}),
		SupersededEdits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_form_superseded_edits_total",
			Help: "Debounced edits replaced before their check was issued",
		}, []string{"field"}),
		OpenForms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "console_form_sessions_open",
			Help: "Creation form sessions currently open",
		}),
	}
}

func (m *Metrics) IncrementCacheHit() {
	m.CacheHits.Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	m.CacheMisses.Inc()
}

// ObserveRefresh records a refresh. Call with time.Now() taken at its start.
func (m *Metrics) ObserveRefresh(start time.Time, err error) {
	m.RefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.RefreshFailures.Inc()
	}
}

func (m *Metrics) IncrementMutation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Mutations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) IncrementAvailabilityCheck(field, result string) {
	m.AvailabilityChecks.WithLabelValues(field, result).Inc()
}

func (m *Metrics) IncrementStaleResult(field string) {
	m.StaleResults.WithLabelValues(field).Inc()
}

func (m *Metrics) IncrementSupersededEdit(field string) {
	m.SupersededEdits.WithLabelValues(field).Inc()
}
