package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/vidyalaya/feeledger/internal/clock"
	"github.com/vidyalaya/feeledger/internal/config"
	"github.com/vidyalaya/feeledger/internal/migration"
	"github.com/vidyalaya/feeledger/internal/observability"
	"github.com/vidyalaya/feeledger/internal/server"
	"github.com/vidyalaya/feeledger/pkg/db"
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
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
