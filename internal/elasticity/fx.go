package elasticity

import (
	"github.com/smallbiznis/pricecast/internal/elasticity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("elasticity.service",
	fx.Provide(service.New),
)
