package scheduler

import (
	"context"

	"github.com/smallbiznis/pricecast/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(Run),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.ETL.RunInterval,
		BatchSize:   cfg.ETL.BatchSize,
	}
}

func Run(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.ETL.SchedulerEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
