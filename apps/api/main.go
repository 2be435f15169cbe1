package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/migration"
	"github.com/smallbiznis/comanda/internal/observability"
	"github.com/smallbiznis/comanda/internal/server"
	"github.com/smallbiznis/comanda/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface only. Run apps/worker next to it for background jobs.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
