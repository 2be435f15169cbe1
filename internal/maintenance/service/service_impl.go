package service

import (
	"context"
	"strings"

	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/maintenance/domain"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
	"github.com/smallbiznis/comanda/internal/seed"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	TableRepo    tabledomain.Repository
	OrderRepo    orderdomain.Repository
	SaleRepo     saledomain.Repository
	ProductRepo  productdomain.Repository
	ZoneRepo     zonedomain.Repository
	SettingsRepo settingsdomain.Repository
	UserRepo     authdomain.Repository
	SessionRepo  authdomain.SessionRepository
	Seeder       *seed.Seeder
	Notifier     orderdomain.Notifier `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	tableRepo    tabledomain.Repository
	orderRepo    orderdomain.Repository
	saleRepo     saledomain.Repository
	productRepo  productdomain.Repository
	zoneRepo     zonedomain.Repository
	settingsRepo settingsdomain.Repository
	userRepo     authdomain.Repository
	sessionRepo  authdomain.SessionRepository
	seeder       *seed.Seeder
	notifier     orderdomain.Notifier
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("maintenance.service"),
		clock:        p.Clock,
		tableRepo:    p.TableRepo,
		orderRepo:    p.OrderRepo,
		saleRepo:     p.SaleRepo,
		productRepo:  p.ProductRepo,
		zoneRepo:     p.ZoneRepo,
		settingsRepo: p.SettingsRepo,
		userRepo:     p.UserRepo,
		sessionRepo:  p.SessionRepo,
		seeder:       p.Seeder,
		notifier:     p.Notifier,
	}
}

func (s *Service) Reset(ctx context.Context, req domain.ResetRequest) (*domain.ResetResponse, error) {
	mode := domain.Mode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if mode != domain.ModePartial && mode != domain.ModeFull {
		return nil, domain.ErrInvalidMode
	}

	now := s.clock.Now().UTC()
	var cleared []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders, err := s.orderRepo.ListAll(ctx, tx)
		if err != nil {
			return err
		}
		cleared = orderdomain.ZoneKeys(orders)

		if err := s.saleRepo.DeleteAll(ctx, tx); err != nil {
			return err
		}
		if err := s.orderRepo.DeleteAll(ctx, tx); err != nil {
			return err
		}
		if mode == domain.ModePartial {
			if err := s.tableRepo.DeleteExternal(ctx, tx); err != nil {
				return err
			}
			return s.tableRepo.ReleaseAll(ctx, tx, now)
		}

		if err := s.tableRepo.DeleteAll(ctx, tx); err != nil {
			return err
		}
		if err := s.productRepo.DeleteAll(ctx, tx); err != nil {
			return err
		}
		if err := s.zoneRepo.DeleteAll(ctx, tx); err != nil {
			return err
		}
		if err := s.settingsRepo.Delete(ctx, tx); err != nil {
			return err
		}
		if err := s.sessionRepo.DeleteAll(ctx, tx); err != nil {
			return err
		}
		return s.userRepo.DeleteAll(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	// re-seed so the terminal stays reachable
	if err := s.seeder.Run(ctx); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		for _, zone := range cleared {
			s.notifier.Notify(ctx, orderdomain.Event{Type: orderdomain.EventTicketCleared, Zone: zone, OccurredAt: now})
		}
		s.notifier.Notify(ctx, orderdomain.Event{Type: orderdomain.EventTableChanged, OccurredAt: now})
	}

	s.log.Warn("database reset",
		zap.String("mode", string(mode)),
		zap.Int64("actor_id", req.ActorID),
	)
	return &domain.ResetResponse{Mode: mode, ResetAt: now}, nil
}
