package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Ingested(OutcomeIndexed)
		m.Queried(OutcomeMatched, time.Millisecond)
		m.Relayed(true)
		m.Retracted(false)
		m.Escalated()
		m.Delivered("broadcast", 1, 1)
		m.Panicked()
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.Ingested(OutcomeIndexed)
	m.Ingested(OutcomeIndexed)
	m.Ingested(OutcomeSkipped)
	m.Relayed(false)
	m.Delivered("broadcast", 3, 2)
	m.Escalated()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestTotal.WithLabelValues(OutcomeIndexed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestTotal.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelaysTotal.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("broadcast", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("broadcast", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EscalationsTotal))
}

func TestServerExposesMetrics(t *testing.T) {
	m := New()
	m.Queried(OutcomeUnmatched, 10*time.Millisecond)

	srv := NewServer(":0", m, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reelbot_search_queries_total{outcome="unmatched"} 1`)
	assert.Contains(t, rec.Body.String(), "reelbot_search_query_duration_seconds")
}
