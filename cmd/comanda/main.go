package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/fleetmetrics"
	"github.com/smallbiznis/comanda/internal/migration"
	"github.com/smallbiznis/comanda/internal/observability"
	"github.com/smallbiznis/comanda/internal/scheduler"
	"github.com/smallbiznis/comanda/internal/server"
	"github.com/smallbiznis/comanda/pkg/db"
	"go.uber.org/fx"
)

// A single terminal runs everything in one process: the API, the kitchen
// feed, background jobs and the fleet metrics push.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
		fleetmetrics.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
