package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/tables/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tables/1", nil))
	}

	got := testutil.ToFloat64(m.apiRequests.WithLabelValues("GET", "/api/tables/:id", "204"))
	assert.Equal(t, 2.0, got)
}

func TestStreamOpenedIsBalanced(t *testing.T) {
	m := NewMetrics()
	done := m.StreamOpened("bar")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.streamClients.WithLabelValues("bar")))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.streamClients.WithLabelValues("bar")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPIRequest("POST", "/auth/login", 200, time.Millisecond)
	m.ObserveStreamEvent("ticket.created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "comanda_api_requests_total")
	assert.Contains(t, string(body), `comanda_stream_events_total{type="ticket.created"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPIRequest("GET", "/", 200, time.Second)
		m.StreamOpened("x")()
		m.ObserveStreamEvent("x")
	})
}
