package product

import (
	"github.com/smallbiznis/pricecast/internal/product/repository"
	"github.com/smallbiznis/pricecast/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
