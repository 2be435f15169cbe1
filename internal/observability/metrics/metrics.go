package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	ordersSubmitted   metric.Int64Counter
	ticketsCreated    metric.Int64Counter
	ticketsDispatched metric.Int64Counter
	salesFinalized    metric.Int64Counter
	paymentLines      metric.Int64Counter
	finalizeBlocked   metric.Int64Counter
	staleWrites       metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "comanda"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	counters := []struct {
		target *metric.Int64Counter
		name   string
	}{
		{&m.ordersSubmitted, "comanda_order_submissions_total"},
		{&m.ticketsCreated, "comanda_kitchen_tickets_created_total"},
		{&m.ticketsDispatched, "comanda_kitchen_tickets_dispatched_total"},
		{&m.salesFinalized, "comanda_sales_finalized_total"},
		{&m.paymentLines, "comanda_payment_lines_total"},
		{&m.finalizeBlocked, "comanda_finalize_blocked_total"},
		{&m.staleWrites, "comanda_stale_writes_total"},
		{&m.rateLimitDenied, "comanda_rate_limit_denied_total"},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name)
		if err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// RecordSubmission counts a delta submission. noOp marks submissions that
// produced no ticket and no note change.
func (m *Metrics) RecordSubmission(ctx context.Context, noOp bool) {
	if m == nil {
		return
	}
	outcome := "produced"
	if noOp {
		outcome = "noop"
	}
	m.ordersSubmitted.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

func (m *Metrics) RecordTicketCreated(ctx context.Context, zone string) {
	if m == nil {
		return
	}
	m.ticketsCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("zone", strings.TrimSpace(zone)))...))
}

func (m *Metrics) RecordTicketDispatched(ctx context.Context, zone string) {
	if m == nil {
		return
	}
	m.ticketsDispatched.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("zone", strings.TrimSpace(zone)))...))
}

func (m *Metrics) RecordSaleFinalized(ctx context.Context, tableType string, paymentMethods []string) {
	if m == nil {
		return
	}
	m.salesFinalized.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("table_type", tableType))...))
	for _, method := range paymentMethods {
		m.paymentLines.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("payment_method", method))...))
	}
}

func (m *Metrics) RecordFinalizeBlocked(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.finalizeBlocked.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))...))
}

// RecordStaleWrite counts writes rejected by the table version check.
func (m *Metrics) RecordStaleWrite(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.staleWrites.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("operation", strings.TrimSpace(operation)))...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":       {},
	"status_code":    {},
	"method":         {},
	"route":          {},
	"zone":           {},
	"table_type":     {},
	"payment_method": {},
	"outcome":        {},
	"operation":      {},
	"reason":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
