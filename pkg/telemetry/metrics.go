package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Module provides the Prometheus registry scraped on /metrics.
var Module = fx.Module("telemetry",
	fx.Provide(NewMetrics),
)

// Metrics exposes Prometheus primitives for the HTTP surface and the
// realtime streams.
type Metrics struct {
	registry      *prometheus.Registry
	apiRequests   *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
	streamClients *prometheus.GaugeVec
	streamEvents  *prometheus.CounterVec
}

// NewMetrics registers and returns Prometheus metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_api_requests_total",
		Help: "Counts API requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comanda_api_duration_seconds",
		Help:    "API request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	streamClients := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "comanda_stream_clients",
		Help: "Connected display streams by zone.",
	}, []string{"zone"})

	streamEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_stream_events_total",
		Help: "Events written to display streams by type.",
	}, []string{"type"})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		apiRequests,
		apiDuration,
		streamClients,
		streamEvents,
	)

	return &Metrics{
		registry:      registry,
		apiRequests:   apiRequests,
		apiDuration:   apiDuration,
		streamClients: streamClients,
		streamEvents:  streamEvents,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	methodLabel := sanitizeLabel(method)
	routeLabel := sanitizeLabel(route)
	m.apiRequests.WithLabelValues(methodLabel, routeLabel, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// StreamOpened tracks a display connecting to zone. The returned func must be
// called once the stream ends.
func (m *Metrics) StreamOpened(zone string) func() {
	if m == nil {
		return func() {}
	}
	gauge := m.streamClients.WithLabelValues(sanitizeLabel(zone))
	gauge.Inc()
	return gauge.Dec
}

func (m *Metrics) ObserveStreamEvent(eventType string) {
	if m == nil {
		return
	}
	m.streamEvents.WithLabelValues(sanitizeLabel(eventType)).Inc()
}

// GinMiddleware records every request once the handler chain completes.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveAPIRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Handler serves the private registry merged with extra gatherers, such as
// the default registry used by the GORM pool collector.
func (m *Metrics) Handler(extra ...prometheus.Gatherer) http.Handler {
	gatherers := prometheus.Gatherers{}
	if m != nil {
		gatherers = append(gatherers, m.registry)
	}
	gatherers = append(gatherers, extra...)
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
