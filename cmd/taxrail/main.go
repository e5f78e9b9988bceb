package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/audit"
	"github.com/smallbiznis/taxrail/internal/calculation"
	"github.com/smallbiznis/taxrail/internal/category"
	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/config"
	"github.com/smallbiznis/taxrail/internal/exemption"
	"github.com/smallbiznis/taxrail/internal/jurisdiction"
	"github.com/smallbiznis/taxrail/internal/migration"
	"github.com/smallbiznis/taxrail/internal/observability"
	"github.com/smallbiznis/taxrail/internal/resultcache"
	"github.com/smallbiznis/taxrail/internal/taxprofile"
	"github.com/smallbiznis/taxrail/internal/taxrate"
	"github.com/smallbiznis/taxrail/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Functional domains
		audit.Module,
		jurisdiction.Module,
		category.Module,
		taxprofile.Module,
		taxrate.Module,
		exemption.Module,
		resultcache.Module,
		calculation.Module,

		migration.Module,
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
