package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateRun(ctx context.Context, tx *gorm.DB, run *ModelRun) error
	CreateEstimate(ctx context.Context, tx *gorm.DB, estimate *ElasticityEstimate) error
	LatestEstimateByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*ElasticityEstimate, error)
	CreateForecasts(ctx context.Context, tx *gorm.DB, forecasts []Forecast) error
	ForecastsByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID, from, to *time.Time) ([]Forecast, error)
	// ForecastsForDates returns the latest predicted units per target date,
	// keyed by the date formatted as 2006-01-02.
	ForecastsForDates(ctx context.Context, db *gorm.DB, productID uuid.UUID, dates []time.Time) (map[string]float64, error)
	CreateRecommendations(ctx context.Context, tx *gorm.DB, recs []PriceRecommendation) error
	RecommendationsByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID, from, to *time.Time, objective string) ([]PriceRecommendation, error)
}
