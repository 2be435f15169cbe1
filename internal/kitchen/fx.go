package kitchen

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/kitchen/relay"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const relayRetryInterval = 5 * time.Second

var Module = fx.Module("kitchen",
	fx.Provide(
		NewFeed,
		fx.Annotate(uuid.NewString, fx.ResultTags(`name:"instance_id"`)),
		provideRelay,
		NewBroadcaster,
		func(b *Broadcaster) orderdomain.Notifier { return b },
	),
	fx.Invoke(runRelayPublisher, runRelayConsumer),
)

func runRelayPublisher(lc fx.Lifecycle, b *Broadcaster) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			b.Start()
			return nil
		},
		OnStop: b.Stop,
	})
}

// provideRelay returns a nil Relay when RabbitMQ is disabled.
func provideRelay(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Relay, error) {
	if !cfg.AMQP.Enabled {
		return nil, nil
	}
	r, err := relay.Dial(relay.Config{
		URL:      cfg.AMQP.URL,
		Exchange: cfg.AMQP.Exchange,
		Queue:    cfg.AMQP.Queue,
	}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return r.Close()
		},
	})
	return r, nil
}

type consumerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Feed      *Feed
	Log       *zap.Logger
	Relay     Relay  `optional:"true"`
	Origin    string `name:"instance_id"`
}

// runRelayConsumer republishes events from other instances into the local
// feed.
func runRelayConsumer(p consumerParams) {
	if p.Relay == nil {
		return
	}
	log := p.Log.Named("kitchen.relay")
	ctx, cancel := context.WithCancel(context.Background())

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				for {
					err := p.Relay.Consume(ctx, ForeignOnly(p.Origin, p.Feed.Publish))
					if ctx.Err() != nil {
						return
					}
					log.Warn("relay consumer stopped, retrying", zap.Error(err))
					select {
					case <-ctx.Done():
						return
					case <-time.After(relayRetryInterval):
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// ForeignOnly drops events this instance produced itself.
func ForeignOnly(origin string, next func(orderdomain.Event)) func(orderdomain.Event) {
	return func(ev orderdomain.Event) {
		if origin != "" && ev.Origin == origin {
			return
		}
		next(ev)
	}
}
