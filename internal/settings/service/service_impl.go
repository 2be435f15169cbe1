package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/comanda/internal/billing/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	POSCfg *config.POSConfigHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	posCfg *config.POSConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("settings.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		posCfg: p.POSCfg,
	}
}

func (s *Service) Get(ctx context.Context) (*domain.Response, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	resp := toResponse(current)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	if req.ExchangeRate != nil {
		rate, err := decimal.NewFromString(strings.TrimSpace(*req.ExchangeRate))
		if err != nil || !rate.IsPositive() {
			return nil, domain.ErrInvalidExchangeRate
		}
		current.ExchangeRate = rate.Round(6)
	}
	if req.IVA != nil {
		iva, err := parseFraction(*req.IVA)
		if err != nil {
			return nil, domain.ErrInvalidIVA
		}
		current.IVA = iva
	}
	if req.IGTF != nil {
		igtf, err := parseFraction(*req.IGTF)
		if err != nil {
			return nil, domain.ErrInvalidIGTF
		}
		current.IGTF = igtf
	}
	if req.IVAEnabled != nil {
		current.IVAEnabled = *req.IVAEnabled
	}
	if req.IGTFEnabled != nil {
		current.IGTFEnabled = *req.IGTFEnabled
	}
	current.UpdatedAt = s.clock.Now()

	if err := s.repo.Upsert(ctx, s.db, current); err != nil {
		return nil, err
	}

	s.log.Info("settings updated",
		zap.String("exchange_rate", current.ExchangeRate.String()),
		zap.String("iva", current.IVA.String()),
		zap.String("igtf", current.IGTF.String()),
		zap.Bool("iva_enabled", current.IVAEnabled),
		zap.Bool("igtf_enabled", current.IGTFEnabled),
	)
	resp := toResponse(current)
	return &resp, nil
}

func (s *Service) Rates(ctx context.Context) (billingdomain.Rates, error) {
	current, err := s.current(ctx)
	if err != nil {
		return billingdomain.Rates{}, err
	}
	return billingdomain.Rates{
		ExchangeRate: current.ExchangeRate,
		IVA:          current.IVA,
		IGTF:         current.IGTF,
		IVAEnabled:   current.IVAEnabled,
		IGTFEnabled:  current.IGTFEnabled,
	}, nil
}

func (s *Service) Seed(ctx context.Context) error {
	existing, err := s.repo.Get(ctx, s.db)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	defaults, err := s.defaults()
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, s.db, defaults); err != nil {
		return err
	}
	s.log.Info("settings seeded", zap.String("exchange_rate", defaults.ExchangeRate.String()))
	return nil
}

func (s *Service) current(ctx context.Context) (*domain.Settings, error) {
	existing, err := s.repo.Get(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.defaults()
}

func (s *Service) defaults() (*domain.Settings, error) {
	cfg := config.DefaultPOSConfig().DefaultRates
	if s.posCfg != nil {
		cfg = s.posCfg.Get().DefaultRates
	}
	rate, err := decimal.NewFromString(cfg.ExchangeRate)
	if err != nil {
		return nil, domain.ErrInvalidExchangeRate
	}
	iva, err := parseFraction(cfg.IVA)
	if err != nil {
		return nil, domain.ErrInvalidIVA
	}
	igtf, err := parseFraction(cfg.IGTF)
	if err != nil {
		return nil, domain.ErrInvalidIGTF
	}
	return &domain.Settings{
		ID:           domain.SingletonID,
		ExchangeRate: rate,
		IVA:          iva,
		IGTF:         igtf,
		IVAEnabled:   cfg.IVAEnabled,
		IGTFEnabled:  cfg.IGTFEnabled,
		UpdatedAt:    s.clock.Now(),
	}, nil
}

// parseFraction accepts a rate in [0, 1).
func parseFraction(raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() || v.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, domain.ErrInvalidIVA
	}
	return v.Round(6), nil
}

func toResponse(s *domain.Settings) domain.Response {
	return domain.Response{
		ExchangeRate: s.ExchangeRate,
		IVA:          s.IVA,
		IGTF:         s.IGTF,
		IVAEnabled:   s.IVAEnabled,
		IGTFEnabled:  s.IGTFEnabled,
		UpdatedAt:    s.UpdatedAt,
	}
}
