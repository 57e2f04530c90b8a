package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
		m.RecordUpstream("/chat", "ok", time.Millisecond)
		m.RecordEnvelope("chat", 200)
		m.RecordRateLimited("/api/chat")
		m.WSOpened()
		m.WSClosed()
	})
}

func TestRecordAndServe(t *testing.T) {
	m := New()
	m.RecordUpstream("/chat", "timeout", 20*time.Second)
	m.RecordEnvelope("chat", 504)
	m.WSOpened()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("/chat", "timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Outcomes.WithLabelValues("chat", "504")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WSConnections))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `relay_envelopes_total{route="chat",status="504"} 1`)
}

func TestInstancesDoNotShareRegistry(t *testing.T) {
	a, b := New(), New()
	a.RecordEnvelope("chat", 200)
	assert.Equal(t, float64(0), testutil.ToFloat64(b.Outcomes.WithLabelValues("chat", "200")))
	assert.NotSame(t, a.Registry(), b.Registry())
}
