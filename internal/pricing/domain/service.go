package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	modelrundomain "github.com/smallbiznis/pricecast/internal/modelrun/domain"
)

const (
	ObjectiveRevenue = "revenue"
	ObjectiveProfit  = "profit"

	DefaultHorizon = 30

	// Default bounds as multiples of the baseline price.
	DefaultPMinFactor = 0.5
	DefaultPMaxFactor = 1.5
)

type RecommendRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Objective string    `json:"objective"`
	PMin      *float64  `json:"pmin"`
	PMax      *float64  `json:"pmax"`
	// TargetDates overrides the default window of tomorrow plus horizon days.
	TargetDates []time.Time `json:"target_dates"`
	Horizon     int         `json:"horizon"`
}

type Recommendation struct {
	TargetDate      time.Time `json:"target_date"`
	SuggestedPrice  float64   `json:"suggested_price"`
	ExpectedUnits   float64   `json:"expected_units"`
	ExpectedRevenue float64   `json:"expected_revenue"`
	ExpectedProfit  float64   `json:"expected_profit"`
}

type Result struct {
	ProductID       uuid.UUID        `json:"product_id"`
	ModelRunID      uuid.UUID        `json:"model_run_id"`
	Objective       string           `json:"objective"`
	Elasticity      float64          `json:"elasticity"`
	BaselinePrice   float64          `json:"baseline_price"`
	PMin            float64          `json:"pmin"`
	PMax            float64          `json:"pmax"`
	Recommendations []Recommendation `json:"recommendations"`
}

var (
	ErrInvalidProduct     = errors.New("invalid_product_id")
	ErrProductNotFound    = errors.New("product_not_found")
	ErrElasticityNotFound = errors.New("elasticity_estimate_not_found")
	ErrSalesNotFound      = errors.New("sales_data_not_found")
	ErrInvalidObjective   = errors.New("invalid_objective")
	ErrInvalidPriceBounds = errors.New("invalid_price_bounds")
)

type Service interface {
	Recommend(ctx context.Context, req RecommendRequest) (*Result, error)
	List(ctx context.Context, productID uuid.UUID, from, to *time.Time, objective string) ([]modelrundomain.PriceRecommendation, error)
}
