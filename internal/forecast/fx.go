package forecast

import "go.uber.org/fx"

var Module = fx.Module("forecast.service",
	fx.Provide(New),
)
