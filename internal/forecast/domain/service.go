package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	modelrundomain "github.com/smallbiznis/pricecast/internal/modelrun/domain"
)

const (
	DefaultHorizon     = 30
	DefaultMinDataDays = 60
	DefaultTestDays    = 14
)

type Request struct {
	ProductID   uuid.UUID `json:"product_id"`
	Horizon     int       `json:"horizon"`
	MinDataDays int       `json:"min_data_days"`
	TestDays    int       `json:"test_days"`
	// Recursive feeds each prediction back into the lag and moving-average
	// features of the next step instead of carrying the last observed row
	// forward. Slower, but the far end of the horizon reflects predicted
	// demand rather than a frozen snapshot.
	Recursive bool `json:"recursive"`
}

type Point struct {
	Date           time.Time `json:"date"`
	PredictedUnits float64   `json:"predicted_units"`
}

type Result struct {
	ProductID         uuid.UUID      `json:"product_id"`
	ModelRunID        uuid.UUID      `json:"model_run_id"`
	Horizon           int            `json:"horizon"`
	MAPE              float64        `json:"mape"`
	TrainSamples      int            `json:"train_samples"`
	TestSamples       int            `json:"test_samples"`
	Forecasts         []Point        `json:"forecasts"`
	FeatureImportance map[string]int `json:"feature_importance"`
}

var (
	ErrInvalidProduct   = errors.New("invalid_product_id")
	ErrInsufficientData = errors.New("insufficient_sales_history")
)

type Service interface {
	Run(ctx context.Context, req Request) (*Result, error)
	List(ctx context.Context, productID uuid.UUID, from, to *time.Time) ([]modelrundomain.Forecast, error)
}
