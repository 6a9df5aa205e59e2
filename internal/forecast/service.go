package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/clock"
	"github.com/smallbiznis/pricecast/internal/forecast/domain"
	"github.com/smallbiznis/pricecast/internal/forecast/gbt"
	modelrundomain "github.com/smallbiznis/pricecast/internal/modelrun/domain"
	"github.com/smallbiznis/pricecast/internal/observability/metrics"
	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	modelName    = "gbt_forecast"
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
		log:     p.Log.Named("forecast.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		sales:   p.Sales,
		runs:    p.Runs,
		metrics: p.Metrics,
	}
}

// Run trains a boosted-trees model on the product's full daily history,
// scores it on the trailing test split, and persists per-day predictions for
// the horizon together with the model run.
func (s *Service) Run(ctx context.Context, req domain.Request) (*domain.Result, error) {
	if req.ProductID == uuid.Nil {
		return nil, domain.ErrInvalidProduct
	}
	if req.Horizon <= 0 {
		req.Horizon = domain.DefaultHorizon
	}
	if req.MinDataDays <= 0 {
		req.MinDataDays = domain.DefaultMinDataDays
	}
	if req.TestDays <= 0 {
		req.TestDays = domain.DefaultTestDays
	}

	history, err := s.sales.HistoryByProduct(ctx, s.db, req.ProductID)
	if err != nil {
		return nil, err
	}
	if len(history) < req.MinDataDays {
		return nil, fmt.Errorf("%w: %d days of history, need %d",
			domain.ErrInsufficientData, len(history), req.MinDataDays)
	}

	frame := buildFeatureFrame(history)
	if len(frame.X) < req.MinDataDays {
		return nil, fmt.Errorf("%w: %d rows after feature engineering, need %d",
			domain.ErrInsufficientData, len(frame.X), req.MinDataDays)
	}
	if len(frame.X) <= req.TestDays {
		return nil, fmt.Errorf("%w: %d rows cannot cover a %d day test split",
			domain.ErrInsufficientData, len(frame.X), req.TestDays)
	}

	split := len(frame.X) - req.TestDays
	model, err := gbt.Train(frame.X[:split], frame.Y[:split], gbt.Params{})
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}

	mape, err := s.evaluate(model, frame.X[split:], frame.Y[split:], req.ProductID)
	if err != nil {
		return nil, err
	}

	points, err := s.predictHorizon(model, history, frame, req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	run := &modelrundomain.ModelRun{
		ID:           uuid.New(),
		ModelName:    modelName,
		ModelVersion: modelVersion,
		Params: datatypes.JSONMap{
			"horizon":       req.Horizon,
			"min_data_days": req.MinDataDays,
			"test_days":     req.TestDays,
			"recursive":     req.Recursive,
			"feature_count": len(FeatureNames),
			"train_samples": split,
			"test_samples":  req.TestDays,
			"mape":          mape,
		},
		StartedAt:  now,
		FinishedAt: &now,
	}

	rows := make([]modelrundomain.Forecast, len(points))
	for i, p := range points {
		rows[i] = modelrundomain.Forecast{
			ID:             s.genID.Generate().Int64(),
			ProductID:      req.ProductID,
			ModelRunID:     run.ID,
			TargetDate:     p.Date,
			PredictedUnits: p.PredictedUnits,
			CreatedAt:      now,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.runs.CreateRun(ctx, tx, run); err != nil {
			return err
		}
		return s.runs.CreateForecasts(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncModelRun(ctx, modelName)

	return &domain.Result{
		ProductID:         req.ProductID,
		ModelRunID:        run.ID,
		Horizon:           req.Horizon,
		MAPE:              mape,
		TrainSamples:      split,
		TestSamples:       req.TestDays,
		Forecasts:         points,
		FeatureImportance: s.importance(model),
	}, nil
}

func (s *Service) List(ctx context.Context, productID uuid.UUID, from, to *time.Time) ([]modelrundomain.Forecast, error) {
	if productID == uuid.Nil {
		return nil, domain.ErrInvalidProduct
	}
	return s.runs.ForecastsByProduct(ctx, s.db, productID, from, to)
}

// evaluate computes MAPE over the test split. Days with zero actual units
// are excluded; a percentage error against zero is undefined.
func (s *Service) evaluate(model *gbt.Model, X [][]float64, y []float64, productID uuid.UUID) (float64, error) {
	ratios := make([]float64, 0, len(X))
	for i := range X {
		pred, err := model.Predict(X[i])
		if err != nil {
			return 0, err
		}
		if y[i] == 0 || !isFinite(pred) {
			continue
		}
		ratios = append(ratios, math.Abs((y[i]-pred)/y[i]))
	}
	if len(ratios) == 0 {
		s.log.Warn("no valid test points for mape",
			zap.String("product_id", productID.String()),
		)
		return 0, nil
	}
	return stat.Mean(ratios, nil) * 100, nil
}

// predictHorizon produces one prediction per future day. Carry-forward mode
// freezes the last engineered row and only advances calendar features;
// recursive mode re-engineers features from the series extended with each
// prediction, holding price at its last observed value.
func (s *Service) predictHorizon(model *gbt.Model, history []salesdomain.SalesFact, frame featureFrame, req domain.Request) ([]domain.Point, error) {
	lastDate := frame.Dates[len(frame.Dates)-1]

	if req.Recursive {
		return s.predictRecursive(model, history, lastDate, req.Horizon)
	}

	lastRow := frame.X[len(frame.X)-1]
	points := make([]domain.Point, 0, req.Horizon)
	for i := 0; i < req.Horizon; i++ {
		date := lastDate.AddDate(0, 0, i+1)

		row := make([]float64, len(lastRow))
		copy(row, lastRow)
		// Positions 1..3 are day_of_week, month, day_of_month.
		row[1], row[2], row[3] = calendarFeatures(date)

		pred, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.Point{Date: date, PredictedUnits: math.Max(0, pred)})
	}
	return points, nil
}

func (s *Service) predictRecursive(model *gbt.Model, history []salesdomain.SalesFact, lastDate time.Time, horizon int) ([]domain.Point, error) {
	units := make([]float64, len(history))
	prices := make([]float64, len(history))
	for i, f := range history {
		units[i] = float64(f.UnitsSold)
		prices[i] = f.Price
	}
	lastPrice := prices[len(prices)-1]

	points := make([]domain.Point, 0, horizon)
	for i := 0; i < horizon; i++ {
		date := lastDate.AddDate(0, 0, i+1)
		units = append(units, 0)
		prices = append(prices, lastPrice)
		idx := len(units) - 1

		row, ok := featureRow(units, prices, date, idx)
		if !ok {
			return nil, fmt.Errorf("feature row for %s could not be built", date.Format("2006-01-02"))
		}
		pred, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		pred = math.Max(0, pred)
		units[idx] = pred
		points = append(points, domain.Point{Date: date, PredictedUnits: pred})
	}
	return points, nil
}

func (s *Service) importance(model *gbt.Model) map[string]int {
	counts := model.SplitCounts()
	out := make(map[string]int, len(FeatureNames))
	for i, name := range FeatureNames {
		out[name] = counts[i]
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
