package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("zone", "bar"),
		attribute.String("table_id", "456"),
		attribute.String("payment_method", "zelle"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("zone"))
	assert.Contains(t, keys, attribute.Key("payment_method"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSubmission(context.Background(), true)
		m.RecordSaleFinalized(context.Background(), "table", []string{"card"})
		m.RecordStaleWrite(context.Background(), "submit")
	})
}

func TestNewBuildsInstruments(t *testing.T) {
	m, err := New(Config{ServiceName: "comanda"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordTicketCreated(context.Background(), "default")
		m.RecordFinalizeBlocked(context.Background(), "not_settled")
	})
}
