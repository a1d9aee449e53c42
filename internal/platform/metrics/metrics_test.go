package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOptionLoad("region", "ok", time.Now())
		m.IncrementStaleCascade("provincia")
		m.IncrementLookup("hit")
		m.ObservePartialPayload(3)
		m.IncrementPersistenceError("patch")
		m.SetFormSessions(2)
		m.ObserveHTTP("GET", "/v1/forms/{id}", time.Millisecond)
		m.IncrementAudit("dropped")
	})
}

func TestCountersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOptionLoad("provincia", "ok", time.Now())
	m.ObserveOptionLoad("provincia", "ok", time.Now())
	m.IncrementLookup("miss")
	m.IncrementStaleCascade("distrito")
	m.IncrementAudit("queued")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OptionLoads.WithLabelValues("provincia", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupResults.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleCascadeResults.WithLabelValues("distrito")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditEvents.WithLabelValues("queued")))
}
