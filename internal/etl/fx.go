package etl

import "go.uber.org/fx"

var Module = fx.Module("etl.pipeline",
	fx.Provide(New),
)
