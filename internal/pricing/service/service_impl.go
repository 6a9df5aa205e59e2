package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/clock"
	modelrundomain "github.com/smallbiznis/pricecast/internal/modelrun/domain"
	"github.com/smallbiznis/pricecast/internal/observability/metrics"
	"github.com/smallbiznis/pricecast/internal/pricing/domain"
	productdomain "github.com/smallbiznis/pricecast/internal/product/domain"
	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	modelName    = "price_optimization"
	modelVersion = "1.0"

	gridPoints = 100
	dateLayout = "2006-01-02"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Products productdomain.Repository
	Sales    salesdomain.Repository
	Runs     modelrundomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	products productdomain.Repository
	sales    salesdomain.Repository
	runs     modelrundomain.Repository
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("pricing.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		products: p.Products,
		sales:    p.Sales,
		runs:     p.Runs,
		metrics:  p.Metrics,
	}
}

// Recommend sweeps a constant-elasticity demand curve over a bounded price
// grid for each target date and stores the argmax of the chosen objective.
// The demand curve is anchored at the latest observed price and scaled to
// each date's forecasted quantity.
func (s *Service) Recommend(ctx context.Context, req domain.RecommendRequest) (*domain.Result, error) {
	if req.ProductID == uuid.Nil {
		return nil, domain.ErrInvalidProduct
	}
	if req.Objective == "" {
		req.Objective = domain.ObjectiveRevenue
	}
	if req.Objective != domain.ObjectiveRevenue && req.Objective != domain.ObjectiveProfit {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidObjective, req.Objective)
	}
	if req.Horizon <= 0 {
		req.Horizon = domain.DefaultHorizon
	}

	product, err := s.products.FindByID(ctx, s.db, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, req.ProductID)
	}

	estimate, err := s.runs.LatestEstimateByProduct(ctx, s.db, req.ProductID)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrElasticityNotFound, req.ProductID)
	}

	latest, err := s.sales.LatestByProduct(ctx, s.db, req.ProductID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSalesNotFound, req.ProductID)
	}
	baselinePrice := latest.Price
	baselineQuantity := float64(latest.UnitsSold)

	pmin := baselinePrice * domain.DefaultPMinFactor
	if req.PMin != nil {
		pmin = *req.PMin
	}
	pmax := baselinePrice * domain.DefaultPMaxFactor
	if req.PMax != nil {
		pmax = *req.PMax
	}
	if pmin >= pmax {
		return nil, fmt.Errorf("%w: pmin %.4f must be below pmax %.4f", domain.ErrInvalidPriceBounds, pmin, pmax)
	}
	if pmin <= 0 {
		return nil, fmt.Errorf("%w: pmin must be positive", domain.ErrInvalidPriceBounds)
	}

	var unitCost float64
	if req.Objective == domain.ObjectiveProfit {
		cost, err := s.sales.LatestUnitCost(ctx, s.db, req.ProductID)
		if err != nil {
			return nil, err
		}
		if cost == nil {
			s.log.Warn("no cost data, assuming zero unit cost",
				zap.String("product_id", req.ProductID.String()),
			)
		} else {
			unitCost = *cost
		}
	}

	targetDates := req.TargetDates
	if len(targetDates) == 0 {
		now := s.clock.Now()
		tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, 1)
		targetDates = make([]time.Time, req.Horizon)
		for i := range targetDates {
			targetDates[i] = tomorrow.AddDate(0, 0, i)
		}
	}

	forecasts, err := s.runs.ForecastsForDates(ctx, s.db, req.ProductID, targetDates)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	dateStrings := make([]string, len(targetDates))
	for i, d := range targetDates {
		dateStrings[i] = d.Format(dateLayout)
	}
	run := &modelrundomain.ModelRun{
		ID:           uuid.New(),
		ModelName:    modelName,
		ModelVersion: modelVersion,
		Params: datatypes.JSONMap{
			"objective":         req.Objective,
			"pmin":              pmin,
			"pmax":              pmax,
			"baseline_price":    baselinePrice,
			"baseline_quantity": baselineQuantity,
			"elasticity":        estimate.Elasticity,
			"elasticity_r2":     estimate.R2,
			"unit_cost":         unitCost,
			"target_dates":      dateStrings,
			"horizon":           req.Horizon,
		},
		StartedAt:  now,
		FinishedAt: &now,
	}

	recs := make([]domain.Recommendation, 0, len(targetDates))
	rows := make([]modelrundomain.PriceRecommendation, 0, len(targetDates))
	for _, date := range targetDates {
		// Fall back to the baseline quantity for dates with no forecast.
		quantity := baselineQuantity
		if q, ok := forecasts[date.Format(dateLayout)]; ok {
			quantity = q
		}

		best := optimize(demandCurve{
			baselinePrice: baselinePrice,
			quantity:      quantity,
			elasticity:    estimate.Elasticity,
		}, pmin, pmax, req.Objective, unitCost)

		rec := domain.Recommendation{
			TargetDate:      date,
			SuggestedPrice:  best.price,
			ExpectedUnits:   best.units,
			ExpectedRevenue: best.revenue,
			ExpectedProfit:  best.profit,
		}
		recs = append(recs, rec)
		rows = append(rows, modelrundomain.PriceRecommendation{
			ID:              s.genID.Generate().Int64(),
			ProductID:       req.ProductID,
			ModelRunID:      run.ID,
			TargetDate:      date,
			Objective:       req.Objective,
			SuggestedPrice:  rec.SuggestedPrice,
			ExpectedUnits:   rec.ExpectedUnits,
			ExpectedRevenue: rec.ExpectedRevenue,
			ExpectedProfit:  rec.ExpectedProfit,
			CreatedAt:       now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.runs.CreateRun(ctx, tx, run); err != nil {
			return err
		}
		return s.runs.CreateRecommendations(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncModelRun(ctx, modelName)

	return &domain.Result{
		ProductID:       req.ProductID,
		ModelRunID:      run.ID,
		Objective:       req.Objective,
		Elasticity:      estimate.Elasticity,
		BaselinePrice:   baselinePrice,
		PMin:            pmin,
		PMax:            pmax,
		Recommendations: recs,
	}, nil
}

func (s *Service) List(ctx context.Context, productID uuid.UUID, from, to *time.Time, objective string) ([]modelrundomain.PriceRecommendation, error) {
	if productID == uuid.Nil {
		return nil, domain.ErrInvalidProduct
	}
	return s.runs.RecommendationsByProduct(ctx, s.db, productID, from, to, objective)
}

// demandCurve models constant-elasticity demand D(p) = D0 * (p/P0)^b.
type demandCurve struct {
	baselinePrice float64
	quantity      float64
	elasticity    float64
}

func (d demandCurve) at(price float64) float64 {
	return d.quantity * math.Pow(price/d.baselinePrice, d.elasticity)
}

type optimum struct {
	price   float64
	units   float64
	revenue float64
	profit  float64
}

// optimize evaluates the objective on an evenly spaced price grid over
// [pmin, pmax] and returns the best point. Expected profit stays zero under
// the revenue objective.
func optimize(curve demandCurve, pmin, pmax float64, objective string, unitCost float64) optimum {
	prices := floats.Span(make([]float64, gridPoints), pmin, pmax)
	scores := make([]float64, gridPoints)
	for i, price := range prices {
		units := curve.at(price)
		if objective == domain.ObjectiveProfit {
			scores[i] = (price - unitCost) * units
		} else {
			scores[i] = price * units
		}
	}

	idx := floats.MaxIdx(scores)
	price := prices[idx]
	units := curve.at(price)

	best := optimum{price: price, units: units, revenue: price * units}
	if objective == domain.ObjectiveProfit {
		best.profit = scores[idx]
	}
	return best
}
