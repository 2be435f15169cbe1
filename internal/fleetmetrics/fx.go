package fleetmetrics

import (
	"context"
	"time"

	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pushInterval = 5 * time.Minute

var Module = fx.Module("fleet.metrics",
	fx.Provide(NewPusher),
	fx.Invoke(run),
)

type params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	Clock     clock.Clock
	Pusher    Pusher                `optional:"true"`
	License   licensedomain.Service `optional:"true"`
}

func run(p params) {
	if p.Pusher == nil {
		return
	}
	log := p.Log.Named("fleet.metrics")
	worker := &Worker{
		db:       p.DB,
		license:  p.License,
		clock:    p.Clock,
		pusher:   p.Pusher,
		recorder: NewRecorderFor(TargetFor(p.Cfg)),
		log:      log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting fleet metrics worker")
			go func() {
				ticker := time.NewTicker(pushInterval)
				defer ticker.Stop()

				worker.Tick(ctx)
				for {
					select {
					case <-ticker.C:
						worker.Tick(ctx)
					case <-ctx.Done():
						log.Info("stopping fleet metrics worker")
						return
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

// Worker collects a snapshot and pushes it. Failures are logged and retried
// on the next tick.
type Worker struct {
	db       *gorm.DB
	license  licensedomain.Service
	clock    clock.Clock
	pusher   Pusher
	recorder *Recorder
	log      *zap.Logger
}

func (w *Worker) Tick(ctx context.Context) {
	snapshot, err := Collect(ctx, w.db, w.license, w.clock.Now().UTC())
	if err != nil {
		w.log.Warn("fleet snapshot failed", zap.Error(err))
		return
	}
	w.recorder.Apply(snapshot)
	if err := w.pusher.Push(ctx, w.recorder.Registry()); err != nil {
		w.log.Warn("fleet metrics push failed", zap.Error(err))
	}
}
