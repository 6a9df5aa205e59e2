package modelrun

import (
	"github.com/smallbiznis/pricecast/internal/modelrun/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("modelrun.repository",
	fx.Provide(repository.Provide),
)
