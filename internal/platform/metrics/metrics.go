package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the form engine. Every method is
// safe to call on a nil *Metrics so components can run without observability.
type Metrics struct {
	OptionLoads         *prometheus.CounterVec
	OptionLoadDuration  *prometheus.HistogramVec
	StaleCascadeResults *prometheus.CounterVec
	LookupResults       *prometheus.CounterVec
	PartialPayloadKeys  prometheus.Histogram
	PersistenceErrors   *prometheus.CounterVec
	FormSessions        prometheus.Gauge
	HTTPLatency         *prometheus.HistogramVec
	AuditEvents         *prometheus.CounterVec
}

// New creates and registers all metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OptionLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldreg_option_loads_total",
			Help: "Option list loads by cascade level and outcome",
		}, []string{"level", "outcome"}),
		OptionLoadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fieldreg_option_load_duration_seconds",
			Help:    "Latency of option list loads by cascade level",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"level"}),
		StaleCascadeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldreg_cascade_stale_results_total",
			Help: "Option loads discarded because the parent value changed while in flight",
		}, []string{"level"}),
		LookupResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldreg_lookup_results_total",
			Help: "Code lookups by result (hit, miss, not_found, failure, sentinel, superseded)",
		}, []string{"result"}),
		PartialPayloadKeys: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldreg_partial_payload_keys",
			Help:    "Number of keys in partial update payloads",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		PersistenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldreg_persistence_errors_total",
			Help: "Failed create/read/update calls against the remote service",
		}, []string{"operation"}),
		FormSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fieldreg_form_sessions",
			Help: "Form sessions currently held in memory",
		}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fieldreg_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AuditEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldreg_audit_events_total",
			Help: "Audit events by outcome (queued, dropped, written, failed)",
		}, []string{"outcome"}),
	}
}

// ObserveOptionLoad records one option load. Call with time.Now() at the start of the load.
func (m *Metrics) ObserveOptionLoad(level, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.OptionLoads.WithLabelValues(level, outcome).Inc()
	m.OptionLoadDuration.WithLabelValues(level).Observe(time.Since(start).Seconds())
}

// IncrementStaleCascade records a discarded cascade response.
func (m *Metrics) IncrementStaleCascade(level string) {
	if m == nil {
		return
	}
	m.StaleCascadeResults.WithLabelValues(level).Inc()
}

// IncrementLookup records a lookup outcome.
func (m *Metrics) IncrementLookup(result string) {
	if m == nil {
		return
	}
	m.LookupResults.WithLabelValues(result).Inc()
}

// ObservePartialPayload records the size of a partial update.
func (m *Metrics) ObservePartialPayload(keys int) {
	if m == nil {
		return
	}
	m.PartialPayloadKeys.Observe(float64(keys))
}

// IncrementPersistenceError records a failed remote persistence call.
func (m *Metrics) IncrementPersistenceError(operation string) {
	if m == nil {
		return
	}
	m.PersistenceErrors.WithLabelValues(operation).Inc()
}

// SetFormSessions reports the number of live form sessions.
func (m *Metrics) SetFormSessions(n int) {
	if m == nil {
		return
	}
	m.FormSessions.Set(float64(n))
}

// ObserveHTTP records request latency.
func (m *Metrics) ObserveHTTP(method, route string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncrementAudit records an audit event outcome.
func (m *Metrics) IncrementAudit(outcome string) {
	if m == nil {
		return
	}
	m.AuditEvents.WithLabelValues(outcome).Inc()
}
