package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ModelRun is one analytical invocation. Immutable once finished; it links
// estimates, forecasts, and recommendations back to the exact parameters
// that produced them.
type ModelRun struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	ModelName    string            `json:"model_name" gorm:"type:text;not null"`
	ModelVersion string            `json:"model_version" gorm:"type:text;not null"`
	Params       datatypes.JSONMap `json:"params,omitempty" gorm:"type:jsonb"`
	StartedAt    time.Time         `json:"started_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
}

func (ModelRun) TableName() string { return "model_runs" }

type ElasticityEstimate struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	ProductID   uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:ix_elasticity_estimates_product"`
	ModelRunID  uuid.UUID `json:"model_run_id" gorm:"type:uuid;not null"`
	WindowStart time.Time `json:"window_start" gorm:"type:date;not null"`
	WindowEnd   time.Time `json:"window_end" gorm:"type:date;not null"`
	Elasticity  float64   `json:"elasticity" gorm:"type:numeric;not null"`
	R2          float64   `json:"r2" gorm:"column:r2;type:numeric;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ElasticityEstimate) TableName() string { return "elasticity_estimates" }

type Forecast struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	ProductID      uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:ix_forecasts_product_date,priority:1"`
	ModelRunID     uuid.UUID `json:"model_run_id" gorm:"type:uuid;not null"`
	TargetDate     time.Time `json:"target_date" gorm:"type:date;not null;index:ix_forecasts_product_date,priority:2"`
	PredictedUnits float64   `json:"predicted_units" gorm:"type:numeric;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Forecast) TableName() string { return "forecasts" }

type PriceRecommendation struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	ProductID       uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:ix_price_recommendations_product_date,priority:1"`
	ModelRunID      uuid.UUID `json:"model_run_id" gorm:"type:uuid;not null"`
	TargetDate      time.Time `json:"target_date" gorm:"type:date;not null;index:ix_price_recommendations_product_date,priority:2"`
	Objective       string    `json:"objective" gorm:"type:text;not null"`
	SuggestedPrice  float64   `json:"suggested_price" gorm:"type:numeric;not null"`
	ExpectedUnits   float64   `json:"expected_units" gorm:"type:numeric;not null"`
	ExpectedRevenue float64   `json:"expected_revenue" gorm:"type:numeric;not null"`
	ExpectedProfit  float64   `json:"expected_profit" gorm:"type:numeric;not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceRecommendation) TableName() string { return "price_recommendations" }
