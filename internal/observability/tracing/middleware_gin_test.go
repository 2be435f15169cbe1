package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/comanda/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareTagsTerminalAndActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	r := gin.New()
	r.Use(GinMiddleware("/api/kitchen/stream"))
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "waiter", "7"))
		c.Next()
	})
	r.POST("/api/tables/:id/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/api/tables/3/orders", nil)
	req.Header.Set("X-Terminal-Id", "barra-2")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /api/tables/:id/orders", spans[0].Name())
	got := attrs(spans[0])
	assert.Equal(t, "barra-2", got[AttrTerminal].AsString())
	assert.Equal(t, "waiter", got[AttrActorRole].AsString())
	assert.Equal(t, "7", got[AttrActorID].AsString())
	assert.Equal(t, int64(http.StatusCreated), got["http.status_code"].AsInt64())
}

func TestGinMiddlewareSkipsUntracedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	r := gin.New()
	r.Use(GinMiddleware("/api/kitchen/stream"))
	r.GET("/api/kitchen/stream", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/kitchen/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/kitchen/stream", nil))
	assert.Empty(t, recorder.Ended())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/kitchen/orders", nil))
	require.Len(t, recorder.Ended(), 1)
	_, tagged := attrs(recorder.Ended()[0])[AttrTerminal]
	assert.False(t, tagged)
}
