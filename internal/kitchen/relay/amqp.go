// Package relay carries kitchen change events between instances over a
// RabbitMQ topic exchange.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	"go.uber.org/zap"
)

const (
	// BindingKey matches every kitchen event.
	BindingKey     = "kitchen.#"
	publishTimeout = 5 * time.Second
	dialTimeout    = 5 * time.Second
)

type Config struct {
	URL      string
	Exchange string
	// Queue is optional. Empty declares a server-named exclusive queue so
	// every instance receives every event.
	Queue string
}

type AMQP struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects and declares the exchange.
func Dial(cfg Config, log *zap.Logger) (*AMQP, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url is required")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		return nil, errors.New("amqp exchange is required")
	}
	r := &AMQP{cfg: cfg, log: log.Named("kitchen.relay")}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *AMQP) connect() error {
	conn, err := amqp.DialConfig(r.cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(r.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", r.cfg.Exchange, err)
	}
	r.conn = conn
	r.channel = ch
	return nil
}

// ensure reconnects when the broker dropped the connection. Callers hold mu;
// the dial is bounded by dialTimeout.
func (r *AMQP) ensure() error {
	if r.conn != nil && !r.conn.IsClosed() && r.channel != nil && !r.channel.IsClosed() {
		return nil
	}
	r.closeLocked()
	return r.connect()
}

// RoutingKey renders kitchen.<zone>.<event>. Events without a zone use "all".
func RoutingKey(ev orderdomain.Event) string {
	zone := strings.TrimSpace(ev.Zone)
	if zone == "" || zone == "*" {
		zone = "all"
	}
	return "kitchen." + zone + "." + string(ev.Type)
}

func (r *AMQP) Publish(ctx context.Context, ev orderdomain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = r.channel.PublishWithContext(ctx, r.cfg.Exchange, RoutingKey(ev), false, false, publishing(ev, body))
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// publishing builds a persistent JSON message so a named queue keeps
// events across a broker restart.
func publishing(ev orderdomain.Event, body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	}
}

// Consume delivers events until ctx is done or the connection drops.
func (r *AMQP) Consume(ctx context.Context, handle func(orderdomain.Event)) error {
	r.mu.Lock()
	if err := r.ensure(); err != nil {
		r.mu.Unlock()
		return err
	}
	ch, err := r.conn.Channel()
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	exclusive := strings.TrimSpace(r.cfg.Queue) == ""
	q, err := ch.QueueDeclare(r.cfg.Queue, !exclusive, exclusive, exclusive, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, BindingKey, r.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, exclusive, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	r.log.Info("relay consumer started", zap.String("queue", q.Name), zap.String("exchange", r.cfg.Exchange))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			var ev orderdomain.Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				r.log.Warn("dropping malformed kitchen event", zap.String("routing_key", d.RoutingKey), zap.Error(err))
				continue
			}
			handle(ev)
		}
	}
}

func (r *AMQP) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *AMQP) closeLocked() error {
	var err error
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	if r.conn != nil {
		err = r.conn.Close()
		r.conn = nil
	}
	return err
}
