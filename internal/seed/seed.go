// Package seed bootstraps the data a fresh terminal needs to be usable.
package seed

import (
	"context"
	"strings"

	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	"github.com/smallbiznis/comanda/internal/config"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultAdminUsername = "admin"
	rootUsername         = "root"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	SettingsSvc settingsdomain.Service
	AuthSvc     authdomain.Service
}

type Seeder struct {
	log      *zap.Logger
	cfg      config.Config
	settings settingsdomain.Service
	auth     authdomain.Service
}

func New(p Params) *Seeder {
	return &Seeder{
		log:      p.Log.Named("seed"),
		cfg:      p.Cfg,
		settings: p.SettingsSvc,
		auth:     p.AuthSvc,
	}
}

// Run seeds default settings and the bootstrap accounts. It never overwrites
// existing rows, so it is safe on every start and after a reset.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.settings.Seed(ctx); err != nil {
		return err
	}

	if pass := strings.TrimSpace(s.cfg.AdminPassword); pass != "" {
		created, err := s.auth.EnsureUser(ctx, defaultAdminUsername, pass, authdomain.RoleAdmin)
		if err != nil {
			return err
		}
		if created {
			s.log.Info("bootstrap admin created", zap.String("username", defaultAdminUsername))
			if s.cfg.IsProduction() && pass == "admin" {
				s.log.Warn("bootstrap admin uses the default password; change it")
			}
		}
	}

	pass := strings.TrimSpace(s.cfg.RootPassword)
	if pass == "" {
		s.log.Info("ROOT_PASSWORD not set, root account not seeded")
		return nil
	}
	created, err := s.auth.EnsureUser(ctx, rootUsername, pass, authdomain.RoleRoot)
	if err != nil {
		return err
	}
	if created {
		s.log.Info("root account created")
	}
	return nil
}
