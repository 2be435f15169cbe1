package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/license/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	POSCfg *config.POSConfigHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	posCfg *config.POSConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("license.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		posCfg: p.POSCfg,
	}
}

func (s *Service) Status(ctx context.Context) (*domain.Response, error) {
	current, err := s.repo.Current(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := toResponse(current, s.clock.Now())
	return &resp, nil
}

func (s *Service) Activate(ctx context.Context, req domain.ActivateRequest) (*domain.Response, error) {
	plan, ok := s.posCfg.Get().FindLicense(req.Key)
	if !ok {
		return nil, domain.ErrInvalidKey
	}

	now := s.clock.Now()
	l := &domain.License{
		ID:          s.genID.Generate().Int64(),
		Key:         strings.ToUpper(strings.TrimSpace(plan.Key)),
		Lifetime:    plan.Lifetime,
		ActivatedAt: now,
	}
	if !plan.Lifetime {
		expires := now.Add(time.Duration(plan.Days) * 24 * time.Hour)
		l.ExpiresAt = &expires
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteAll(ctx, tx); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, l)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("license activated", zap.String("plan", l.Key), zap.Bool("lifetime", l.Lifetime))
	resp := toResponse(l, now)
	return &resp, nil
}

func (s *Service) IsActive(ctx context.Context) (bool, error) {
	current, err := s.repo.Current(ctx, s.db)
	if err != nil {
		return false, err
	}
	return domain.StateAt(current, s.clock.Now()) == domain.StateActive, nil
}

func toResponse(l *domain.License, now time.Time) domain.Response {
	resp := domain.Response{
		State:    domain.StateAt(l, now),
		DaysLeft: domain.DaysLeft(l, now),
	}
	if l == nil {
		return resp
	}
	activated := l.ActivatedAt
	resp.Plan = l.Key
	resp.Lifetime = l.Lifetime
	resp.ActivatedAt = &activated
	resp.ExpiresAt = l.ExpiresAt
	return resp
}
