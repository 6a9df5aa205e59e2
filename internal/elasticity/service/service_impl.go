package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/clock"
	"github.com/smallbiznis/pricecast/internal/elasticity/domain"
	modelrundomain "github.com/smallbiznis/pricecast/internal/modelrun/domain"
	"github.com/smallbiznis/pricecast/internal/observability/metrics"
	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	modelName    = "log_log_ols"
	modelVersion = "1.0"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Sales   salesdomain.Repository
	Runs    modelrundomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	sales   salesdomain.Repository
	runs    modelrundomain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("elasticity.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		sales:   p.Sales,
		runs:    p.Runs,
		metrics: p.Metrics,
	}
}

// Estimate fits ln(units) = a + b*ln(price) over a rolling window and
// persists the result together with its model run in one transaction.
// The slope b is the price elasticity of demand.
func (s *Service) Estimate(ctx context.Context, req domain.EstimateRequest) (*domain.Estimate, error) {
	if req.ProductID == uuid.Nil {
		return nil, domain.ErrInvalidProduct
	}
	if req.WindowDays <= 0 {
		req.WindowDays = domain.DefaultWindowDays
	}
	if req.MinPriceCV <= 0 {
		req.MinPriceCV = domain.DefaultMinPriceCV
	}
	if req.MinR2 <= 0 {
		req.MinR2 = domain.DefaultMinR2
	}

	now := s.clock.Now()
	windowEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	windowStart := windowEnd.AddDate(0, 0, -req.WindowDays)

	facts, err := s.sales.WindowByProduct(ctx, s.db, req.ProductID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	if len(facts) < domain.MinWindowRows {
		return nil, fmt.Errorf("%w: only %d sales records in window", domain.ErrInsufficientData, len(facts))
	}

	prices := make([]float64, len(facts))
	for i, f := range facts {
		prices[i] = f.Price
	}
	priceCV := stat.StdDev(prices, nil) / stat.Mean(prices, nil)

	flags := domain.QualityFlags{}
	confidence := domain.ConfidenceHigh
	if priceCV < req.MinPriceCV {
		s.log.Warn("low price variance",
			zap.String("product_id", req.ProductID.String()),
			zap.Float64("price_cv", priceCV),
		)
		flags.LowPriceVariance = true
		confidence = domain.ConfidenceLowPriceVariance
	}

	// Log transforms; rows with zero or negative price/units go non-finite
	// and are dropped.
	var lnPrice, lnUnits []float64
	for _, f := range facts {
		lp := math.Log(f.Price)
		lq := math.Log(float64(f.UnitsSold))
		if !isFinite(lp) || !isFinite(lq) {
			continue
		}
		lnPrice = append(lnPrice, lp)
		lnUnits = append(lnUnits, lq)
	}
	if len(lnPrice) < domain.MinCleanRows {
		return nil, fmt.Errorf("%w: only %d valid points after cleaning", domain.ErrInsufficientData, len(lnPrice))
	}

	elasticity, r2, err := fitLogLogOLS(lnPrice, lnUnits)
	if err != nil {
		s.log.Warn("singular design matrix",
			zap.String("product_id", req.ProductID.String()),
			zap.Error(err),
		)
		return nil, domain.ErrInsufficientPriceVariation
	}

	if r2 < req.MinR2 {
		s.log.Warn("low r2",
			zap.String("product_id", req.ProductID.String()),
			zap.Float64("r2", r2),
		)
		flags.LowR2 = true
		confidence = domain.ConfidenceLowR2
	}
	if elasticity > 0 {
		s.log.Warn("positive elasticity",
			zap.String("product_id", req.ProductID.String()),
			zap.Float64("elasticity", elasticity),
		)
	}

	run := &modelrundomain.ModelRun{
		ID:           uuid.New(),
		ModelName:    modelName,
		ModelVersion: modelVersion,
		Params: datatypes.JSONMap{
			"window_days":        req.WindowDays,
			"start_date":         windowStart.Format("2006-01-02"),
			"end_date":           windowEnd.Format("2006-01-02"),
			"data_points":        len(lnPrice),
			"price_cv":           priceCV,
			"min_price_variance": req.MinPriceCV,
			"min_r2_threshold":   req.MinR2,
			"confidence":         confidence,
		},
		StartedAt:  now,
		FinishedAt: &now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.runs.CreateRun(ctx, tx, run); err != nil {
			return err
		}
		return s.runs.CreateEstimate(ctx, tx, &modelrundomain.ElasticityEstimate{
			ID:          s.genID.Generate().Int64(),
			ProductID:   req.ProductID,
			ModelRunID:  run.ID,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			Elasticity:  elasticity,
			R2:          r2,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncModelRun(ctx, modelName)

	return &domain.Estimate{
		ProductID:   req.ProductID,
		ModelRunID:  run.ID,
		Elasticity:  elasticity,
		R2:          r2,
		Confidence:  confidence,
		Flags:       flags,
		DataPoints:  len(lnPrice),
		PriceCV:     priceCV,
		WindowDays:  req.WindowDays,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}, nil
}

// fitLogLogOLS solves beta = (X'X)^-1 X'y for X = [1, x] and returns the
// slope plus R squared. An uninvertible X'X means x has no usable variation.
func fitLogLogOLS(x, y []float64) (slope, r2 float64, err error) {
	n := len(x)
	X := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		X.Set(i, 1, x[i])
	}
	yv := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return 0, 0, err
	}

	var xty, beta mat.VecDense
	xty.MulVec(X.T(), yv)
	beta.MulVec(&inv, &xty)

	slope = beta.AtVec(1)

	var pred mat.VecDense
	pred.MulVec(X, &beta)

	mean := stat.Mean(y, nil)
	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		d := y[i] - pred.AtVec(i)
		ssRes += d * d
		m := y[i] - mean
		ssTot += m * m
	}
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return slope, r2, nil
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
