package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	"github.com/smallbiznis/comanda/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobPruneSessions = "prune_sessions"
	JobKitchenDelays = "kitchen_delays"
	JobLicenseWatch  = "license_watch"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	AuthSvc   authdomain.Service
	OrderRepo orderdomain.Repository
	POSConfig *config.POSConfigHolder
	Config    Config                `optional:"true"`
	License   licensedomain.Service `optional:"true"`
	Notifier  orderdomain.Notifier  `optional:"true"`
	Locker    *ratelimit.Locker     `optional:"true"`
}

// Scheduler runs housekeeping jobs on a fixed interval. With redis configured
// each job runs on one instance at a time.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	authSvc   authdomain.Service
	orderRepo orderdomain.Repository
	posCfg    *config.POSConfigHolder
	license   licensedomain.Service
	notifier  orderdomain.Notifier
	locker    *ratelimit.Locker

	mu          sync.Mutex
	delayCursor time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.AuthSvc == nil || p.OrderRepo == nil || p.POSConfig == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		authSvc:   p.AuthSvc,
		orderRepo: p.OrderRepo,
		posCfg:    p.POSConfig,
		license:   p.License,
		notifier:  p.Notifier,
		locker:    p.Locker,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	err := s.locker.WithLock(ctx, "scheduler:"+name, s.cfg.JobTimeout, func() error {
		return fn(ctx)
	})
	if errors.Is(err, ratelimit.ErrLocked) {
		log.Debug("job held by another instance")
		return nil
	}
	if err == nil {
		log.Debug("job finished", zap.Duration("duration", s.clock.Now().Sub(start)))
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobPruneSessions, s.PruneSessionsJob},
		{JobKitchenDelays, s.KitchenDelaysJob},
		{JobLicenseWatch, s.LicenseWatchJob},
	}
	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) PruneSessionsJob(ctx context.Context) error {
	removed, err := s.authSvc.PruneSessions(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Info("pruned sessions", zap.Int64("removed", removed))
	}
	return nil
}

// KitchenDelaysJob notifies displays when open tickets cross the delay
// threshold, so the delayed flag shows without waiting for another change.
// Each ticket is reported once per process.
func (s *Scheduler) KitchenDelaysJob(ctx context.Context) error {
	delay := time.Duration(s.posCfg.Get().KitchenDelayMins) * time.Minute
	now := s.clock.Now().UTC()
	cutoff := now.Add(-delay)

	s.mu.Lock()
	from := s.delayCursor
	if from.IsZero() {
		from = cutoff.Add(-s.cfg.RunInterval)
	}
	s.mu.Unlock()
	if !cutoff.After(from) {
		return nil
	}

	orders, err := s.orderRepo.ListOpenCreatedBetween(ctx, s.db, from, cutoff)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.delayCursor = cutoff
	s.mu.Unlock()

	if len(orders) == 0 || s.notifier == nil {
		return nil
	}
	for _, zone := range orderdomain.ZoneKeys(orders) {
		s.notifier.Notify(ctx, orderdomain.Event{
			Type:       orderdomain.EventTicketDelayed,
			Zone:       zone,
			OccurredAt: now,
		})
	}
	s.log.Info("kitchen tickets delayed", zap.Int("count", len(orders)))
	return nil
}

func (s *Scheduler) LicenseWatchJob(ctx context.Context) error {
	if s.license == nil {
		return nil
	}
	status, err := s.license.Status(ctx)
	if err != nil {
		return err
	}
	switch {
	case status.State == licensedomain.StateNone:
		s.log.Warn("no license activated, billing is limited to root")
	case status.State == licensedomain.StateExpired:
		s.log.Warn("license expired, billing is limited to root", zap.String("plan", status.Plan))
	case !status.Lifetime && status.DaysLeft <= s.cfg.LicenseWarnDays:
		s.log.Warn("license expires soon", zap.String("plan", status.Plan), zap.Int("days_left", status.DaysLeft))
	}
	return nil
}
