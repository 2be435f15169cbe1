package migration

import (
	"context"

	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Provide(seed.New),
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config, seeder *seed.Seeder) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := Run(conn.WithContext(ctx), cfg.DBType); err != nil {
					return err
				}
				return seeder.Run(ctx)
			},
		})
	}),
)
