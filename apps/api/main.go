package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricecast/internal/cache"
	"github.com/smallbiznis/pricecast/internal/clock"
	"github.com/smallbiznis/pricecast/internal/config"
	"github.com/smallbiznis/pricecast/internal/elasticity"
	"github.com/smallbiznis/pricecast/internal/etl"
	"github.com/smallbiznis/pricecast/internal/forecast"
	"github.com/smallbiznis/pricecast/internal/logger"
	"github.com/smallbiznis/pricecast/internal/migration"
	"github.com/smallbiznis/pricecast/internal/modelrun"
	"github.com/smallbiznis/pricecast/internal/observability"
	"github.com/smallbiznis/pricecast/internal/organization"
	"github.com/smallbiznis/pricecast/internal/pricing"
	"github.com/smallbiznis/pricecast/internal/product"
	"github.com/smallbiznis/pricecast/internal/ratelimit"
	"github.com/smallbiznis/pricecast/internal/sales"
	"github.com/smallbiznis/pricecast/internal/server"
	"github.com/smallbiznis/pricecast/internal/staging"
	"github.com/smallbiznis/pricecast/pkg/db"
	"go.uber.org/fx"
)

// API-only entrypoint: serves HTTP without the background scheduler. Pair
// with the etl app when ingestion runs as its own deployment.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		organization.Module,
		product.Module,
		staging.Module,
		sales.Module,
		modelrun.Module,
		etl.Module,
		elasticity.Module,
		forecast.Module,
		pricing.Module,
		ratelimit.Module,

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
