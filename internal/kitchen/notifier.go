package kitchen

import (
	"context"
	"sync"

	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// relayQueueSize bounds the events waiting for the broker. Overflow is
// dropped; the local feed has already delivered them.
const relayQueueSize = 256

// Relay forwards events to other instances and receives theirs.
type Relay interface {
	Publish(ctx context.Context, ev orderdomain.Event) error
	Consume(ctx context.Context, handle func(orderdomain.Event)) error
}

type BroadcasterParams struct {
	fx.In

	Feed   *Feed
	Log    *zap.Logger
	Relay  Relay  `optional:"true"`
	Origin string `name:"instance_id"`
}

// Broadcaster publishes order events to the local feed and, when configured,
// queues them for the relay. Notify never waits on the broker.
type Broadcaster struct {
	feed   *Feed
	relay  Relay
	origin string
	log    *zap.Logger

	queue chan orderdomain.Event

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBroadcaster(p BroadcasterParams) *Broadcaster {
	b := &Broadcaster{
		feed:   p.Feed,
		relay:  p.Relay,
		origin: p.Origin,
		log:    p.Log.Named("kitchen.broadcaster"),
	}
	if b.relay != nil {
		b.queue = make(chan orderdomain.Event, relayQueueSize)
	}
	return b
}

func (b *Broadcaster) Notify(ctx context.Context, ev orderdomain.Event) {
	if ev.Origin == "" {
		ev.Origin = b.origin
	}
	b.feed.Publish(ev)
	if b.queue == nil {
		return
	}
	select {
	case b.queue <- ev:
	default:
		b.log.Warn("relay queue full, dropping event",
			zap.String("event", string(ev.Type)),
			zap.String("zone", ev.Zone),
		)
	}
}

// Start drains the relay queue until Stop. It is a no-op without a relay.
func (b *Broadcaster) Start() {
	if b.queue == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.drain(ctx, b.done)
}

// Stop ends the drain loop, waiting at most until ctx is done. Events still
// queued are discarded.
func (b *Broadcaster) Stop(ctx context.Context) error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broadcaster) drain(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.queue:
			if err := b.relay.Publish(ctx, ev); err != nil && ctx.Err() == nil {
				b.log.Warn("relay publish failed",
					zap.String("event", string(ev.Type)),
					zap.String("zone", ev.Zone),
					zap.Error(err),
				)
			}
		}
	}
}
