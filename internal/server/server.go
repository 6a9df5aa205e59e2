package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pricecast/internal/config"
	elasticitydomain "github.com/smallbiznis/pricecast/internal/elasticity/domain"
	"github.com/smallbiznis/pricecast/internal/etl"
	forecastdomain "github.com/smallbiznis/pricecast/internal/forecast/domain"
	pricingdomain "github.com/smallbiznis/pricecast/internal/pricing/domain"
	productdomain "github.com/smallbiznis/pricecast/internal/product/domain"
	"github.com/smallbiznis/pricecast/internal/ratelimit"
	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
	stagingdomain "github.com/smallbiznis/pricecast/internal/staging/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	pipeline   *etl.Pipeline
	staging    stagingdomain.Repository
	sales      salesdomain.Repository
	products   productdomain.Service
	elasticity elasticitydomain.Service
	forecasts  forecastdomain.Service
	pricing    pricingdomain.Service
	limiter    *ratelimit.UploadLimiter
}

type ServerParams struct {
	fx.In

	Engine     *gin.Engine
	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Pipeline   *etl.Pipeline
	Staging    stagingdomain.Repository
	Sales      salesdomain.Repository
	Products   productdomain.Service
	Elasticity elasticitydomain.Service
	Forecasts  forecastdomain.Service
	Pricing    pricingdomain.Service
	Limiter    *ratelimit.UploadLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Engine,
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("http.server"),
		pipeline:   p.Pipeline,
		staging:    p.Staging,
		sales:      p.Sales,
		products:   p.Products,
		elasticity: p.Elasticity,
		forecasts:  p.Forecasts,
		pricing:    p.Pricing,
		limiter:    p.Limiter,
	}
	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	sales := v1.Group("/sales")
	sales.POST("/upload", s.uploadRateLimit(), s.uploadSales)
	sales.POST("/upload/csv", s.uploadRateLimit(), s.uploadSalesCSV)

	v1.POST("/etl/run", s.runETL)

	ml := v1.Group("/ml")
	ml.POST("/estimate-elasticity", s.estimateElasticity)
	ml.POST("/run-forecast", s.runForecast)
	ml.POST("/recommend-prices", s.recommendPrices)

	products := v1.Group("/products")
	products.GET("", s.listProducts)
	products.GET("/:id", s.getProduct)
	products.GET("/:id/forecasts", s.getProductForecasts)
	products.GET("/:id/recommendations", s.getProductRecommendations)

	v1.GET("/dashboard/summary", s.dashboardSummary)
}
