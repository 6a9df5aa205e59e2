package sales

import (
	"github.com/smallbiznis/pricecast/internal/sales/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("sales.repository",
	fx.Provide(repository.Provide),
)
