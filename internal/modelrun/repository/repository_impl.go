package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/modelrun/domain"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateRun(ctx context.Context, tx *gorm.DB, run *domain.ModelRun) error {
	return tx.WithContext(ctx).Create(run).Error
}

func (r *repo) CreateEstimate(ctx context.Context, tx *gorm.DB, estimate *domain.ElasticityEstimate) error {
	return tx.WithContext(ctx).Create(estimate).Error
}

func (r *repo) LatestEstimateByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*domain.ElasticityEstimate, error) {
	var items []domain.ElasticityEstimate
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) CreateForecasts(ctx context.Context, tx *gorm.DB, forecasts []domain.Forecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	return tx.WithContext(ctx).CreateInBatches(forecasts, 500).Error
}

func (r *repo) ForecastsByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID, from, to *time.Time) ([]domain.Forecast, error) {
	stmt := db.WithContext(ctx).
		Where("product_id = ?", productID)
	if from != nil {
		stmt = stmt.Where("target_date >= ?", *from)
	}
	if to != nil {
		stmt = stmt.Where("target_date <= ?", *to)
	}

	var items []domain.Forecast
	if err := stmt.Order("target_date ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ForecastsForDates(ctx context.Context, db *gorm.DB, productID uuid.UUID, dates []time.Time) (map[string]float64, error) {
	if len(dates) == 0 {
		return map[string]float64{}, nil
	}
	var items []domain.Forecast
	err := db.WithContext(ctx).
		Where("product_id = ? AND target_date IN ?", productID, dates).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	// Later rows win so the newest forecast per date survives.
	out := make(map[string]float64, len(items))
	for _, f := range items {
		out[f.TargetDate.Format(dateLayout)] = f.PredictedUnits
	}
	return out, nil
}

func (r *repo) CreateRecommendations(ctx context.Context, tx *gorm.DB, recs []domain.PriceRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	return tx.WithContext(ctx).CreateInBatches(recs, 500).Error
}

func (r *repo) RecommendationsByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID, from, to *time.Time, objective string) ([]domain.PriceRecommendation, error) {
	stmt := db.WithContext(ctx).
		Where("product_id = ?", productID)
	if from != nil {
		stmt = stmt.Where("target_date >= ?", *from)
	}
	if to != nil {
		stmt = stmt.Where("target_date <= ?", *to)
	}
	if objective != "" {
		stmt = stmt.Where("objective = ?", objective)
	}

	var items []domain.PriceRecommendation
	if err := stmt.Order("target_date ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
