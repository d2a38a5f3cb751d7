package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/clock"
	"github.com/landworks/cadastre/internal/observability"
	"github.com/landworks/cadastre/internal/server"
	"github.com/landworks/cadastre/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
