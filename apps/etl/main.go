package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricecast/internal/cache"
	"github.com/smallbiznis/pricecast/internal/clock"
	"github.com/smallbiznis/pricecast/internal/config"
	"github.com/smallbiznis/pricecast/internal/etl"
	"github.com/smallbiznis/pricecast/internal/logger"
	"github.com/smallbiznis/pricecast/internal/migration"
	"github.com/smallbiznis/pricecast/internal/observability"
	"github.com/smallbiznis/pricecast/internal/organization"
	"github.com/smallbiznis/pricecast/internal/product"
	"github.com/smallbiznis/pricecast/internal/sales"
	"github.com/smallbiznis/pricecast/internal/staging"
	"github.com/smallbiznis/pricecast/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// One-shot ETL entrypoint: drains the staging table once and exits. Suitable
// for cron or manual runs.
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
		etl.Module,

		fx.Invoke(runOnce),
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

func runOnce(lc fx.Lifecycle, shutdowner fx.Shutdowner, pipeline *etl.Pipeline, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				res, err := pipeline.Run(context.Background(), 0)
				if err != nil {
					log.Error("etl run failed", zap.Error(err))
				} else {
					log.Info("etl run finished",
						zap.Int("claimed", res.Claimed),
						zap.Int("processed", res.Processed),
						zap.Int("failed", res.Failed),
					)
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
}
