package fleetmetrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/comanda/internal/config"
	obstracing "github.com/smallbiznis/comanda/internal/observability/tracing"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const (
	exporterPrometheusRemoteWrite = "prometheus_remote_write"
	exporterPrometheusPushgateway = "prometheus_pushgateway"
	defaultPushTimeout            = 5 * time.Second
	// fleetMetricPrefix limits what leaves the terminal to the fleet gauges.
	fleetMetricPrefix = "comanda_fleet_"
)

// Target identifies the terminal a push comes from.
type Target struct {
	Job      string
	Terminal string
	Store    string
}

// TargetFor names the terminal from config, falling back to the hostname.
func TargetFor(cfg config.Config) Target {
	job := strings.TrimSpace(cfg.AppName)
	if job == "" {
		job = "comanda"
	}
	terminal := strings.TrimSpace(cfg.Fleet.TerminalID)
	if terminal == "" {
		if host, err := os.Hostname(); err == nil {
			terminal = host
		}
	}
	return Target{
		Job:      job,
		Terminal: normalizeLabel(terminal),
		Store:    normalizeLabel(cfg.Fleet.StoreName),
	}
}

// Pusher ships a terminal's registry to the central collector.
type Pusher interface {
	Push(ctx context.Context, registry *prometheus.Registry) error
}

// NewPusher builds a pusher from config. A misconfigured exporter is logged
// and disables pushing rather than failing startup.
func NewPusher(cfg config.Config, logger *zap.Logger) Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	fleet := cfg.Fleet
	if !fleet.Enabled {
		return nil
	}

	exporter := strings.ToLower(strings.TrimSpace(fleet.Exporter))
	endpoint := strings.TrimSpace(fleet.Endpoint)
	if exporter == "" {
		logger.Warn("fleet metrics disabled", zap.Error(errors.New("FLEET_METRICS_EXPORTER is required")))
		return nil
	}
	if endpoint == "" {
		logger.Warn("fleet metrics disabled", zap.Error(errors.New("FLEET_METRICS_ENDPOINT is required")))
		return nil
	}

	switch exporter {
	case exporterPrometheusRemoteWrite:
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			logger.Warn("fleet metrics disabled", zap.Error(fmt.Errorf("invalid FLEET_METRICS_ENDPOINT: %w", err)))
			return nil
		}
		return NewRemoteWritePusher(endpoint, fleet.AuthToken, TargetFor(cfg))
	case exporterPrometheusPushgateway:
		return NewPushgatewayPusher(endpoint, TargetFor(cfg))
	default:
		logger.Warn("fleet metrics disabled", zap.String("exporter", exporter))
		return nil
	}
}

// RemoteWritePusher sends the fleet gauges to a Prometheus remote_write
// endpoint. Series get job and instance labels since no scraper adds them.
type RemoteWritePusher struct {
	endpoint   string
	authToken  string
	target     Target
	httpClient *http.Client
	now        func() time.Time
}

// NewRemoteWritePusher returns a pusher for Prometheus remote_write.
func NewRemoteWritePusher(endpoint, authToken string, target Target) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint:  endpoint,
		authToken: strings.TrimSpace(authToken),
		target:    target,
		httpClient: obstracing.WrapHTTPClient(&http.Client{
			Timeout: defaultPushTimeout,
		}),
		now: time.Now,
	}
}

// Push sends the current registry metrics via remote_write.
func (p *RemoteWritePusher) Push(ctx context.Context, registry *prometheus.Registry) error {
	if p == nil || registry == nil {
		return nil
	}

	families, err := registry.Gather()
	if err != nil {
		return err
	}
	if len(families) == 0 {
		return nil
	}

	series := buildRemoteWriteSeries(families, p.target, p.now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	req := &prompb.WriteRequest{Timeseries: series}
	payload, err := proto.Marshal(protoadapt.MessageV2Of(req))
	if err != nil {
		return err
	}

	compressed := snappy.Encode(nil, payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// PushgatewayPusher sends metrics to a Prometheus Pushgateway grouped by
// instance, so terminals never overwrite each other. The series already carry
// terminal and store labels, which the gateway refuses as grouping keys.
type PushgatewayPusher struct {
	endpoint string
	target   Target
}

func NewPushgatewayPusher(endpoint string, target Target) *PushgatewayPusher {
	return &PushgatewayPusher{
		endpoint: endpoint,
		target:   target,
	}
}

// Push sends the current registry metrics to the Pushgateway.
func (p *PushgatewayPusher) Push(ctx context.Context, registry *prometheus.Registry) error {
	if p == nil || registry == nil {
		return nil
	}
	if strings.TrimSpace(p.endpoint) == "" {
		return errors.New("pushgateway endpoint is required")
	}
	job := strings.TrimSpace(p.target.Job)
	if job == "" {
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, job).Gatherer(registry)
	if instance := strings.TrimSpace(p.target.Terminal); instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}
	return pusher.PushContext(ctx)
}

func buildRemoteWriteSeries(families []*dto.MetricFamily, target Target, timestampMs int64) []prompb.TimeSeries {
	series := make([]prompb.TimeSeries, 0, len(families))
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), fleetMetricPrefix) {
			continue
		}
		switch family.GetType() {
		case dto.MetricType_COUNTER, dto.MetricType_GAUGE:
		default:
			continue
		}
		for _, metric := range family.GetMetric() {
			value := extractMetricValue(family.GetType(), metric)
			if value == nil {
				continue
			}
			series = append(series, prompb.TimeSeries{
				Labels: seriesLabels(family.GetName(), metric, target),
				Samples: []prompb.Sample{{
					Value:     *value,
					Timestamp: timestampMs,
				}},
			})
		}
	}
	return series
}

func seriesLabels(name string, metric *dto.Metric, target Target) []prompb.Label {
	labels := make([]prompb.Label, 0, len(metric.GetLabel())+3)
	labels = append(labels, prompb.Label{Name: "__name__", Value: name})
	seen := map[string]struct{}{}
	for _, label := range metric.GetLabel() {
		seen[label.GetName()] = struct{}{}
		labels = append(labels, prompb.Label{Name: label.GetName(), Value: label.GetValue()})
	}
	for _, extra := range [][2]string{{"job", target.Job}, {"instance", target.Terminal}} {
		if _, ok := seen[extra[0]]; ok || strings.TrimSpace(extra[1]) == "" {
			continue
		}
		labels = append(labels, prompb.Label{Name: extra[0], Value: extra[1]})
	}
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Name < labels[j].Name
	})
	return labels
}

func extractMetricValue(metricType dto.MetricType, metric *dto.Metric) *float64 {
	if metric == nil {
		return nil
	}
	switch metricType {
	case dto.MetricType_COUNTER:
		if metric.GetCounter() == nil {
			return nil
		}
		value := metric.GetCounter().GetValue()
		return &value
	case dto.MetricType_GAUGE:
		if metric.GetGauge() == nil {
			return nil
		}
		value := metric.GetGauge().GetValue()
		return &value
	default:
		return nil
	}
}
