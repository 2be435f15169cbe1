package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/fleetmetrics"
	"github.com/smallbiznis/comanda/internal/observability"
	"github.com/smallbiznis/comanda/internal/scheduler"
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

		// Domain services required by the jobs
		server.Services,

		// No HTTP listener
		scheduler.Module,
		fleetmetrics.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
