package relay

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "kitchen.default.ticket.created", RoutingKey(orderdomain.Event{Type: orderdomain.EventTicketCreated, Zone: "default"}))
	assert.Equal(t, "kitchen.all.table.changed", RoutingKey(orderdomain.Event{Type: orderdomain.EventTableChanged}))
	assert.Equal(t, "kitchen.all.ticket.cleared", RoutingKey(orderdomain.Event{Type: orderdomain.EventTicketCleared, Zone: "*"}))
}

func TestDialRequiresConfig(t *testing.T) {
	_, err := Dial(Config{Exchange: "comanda.kitchen"}, zap.NewNop())
	assert.Error(t, err)

	_, err = Dial(Config{URL: "amqp://localhost"}, zap.NewNop())
	assert.Error(t, err)
}

func TestPublishingIsPersistentJSON(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := publishing(orderdomain.Event{Type: orderdomain.EventTicketCreated, OccurredAt: at}, []byte(`{}`))

	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, string(orderdomain.EventTicketCreated), msg.Type)
	assert.Equal(t, at, msg.Timestamp)
}
