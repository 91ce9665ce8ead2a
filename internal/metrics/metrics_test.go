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

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveRequest("POST", "/chat/", 200)
	m.ObserveRequest("POST", "/chat/", 200)
	m.ChatOutcome("answered")
	m.ScrapeItem("primary")
	m.ObserveStage("retrieving", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/chat/", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatOutcomes.WithLabelValues("answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scrapeItems.WithLabelValues("primary")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.chatStage))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/health", 200)
		m.ObserveStage("generating", time.Second)
		m.ChatOutcome("fallback")
		m.ScrapeItem("failed")
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesAdvisorMetrics(t *testing.T) {
	m := New()
	m.ChatOutcome("answered")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `advisor_chat_outcomes_total{outcome="answered"} 1`)
}
