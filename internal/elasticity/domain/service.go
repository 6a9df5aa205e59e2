package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultWindowDays = 90
	DefaultMinPriceCV = 0.1
	DefaultMinR2      = 0.2

	// MinWindowRows is the floor on raw observations in the window;
	// MinCleanRows is the floor after dropping non-finite log transforms.
	MinWindowRows = 10
	MinCleanRows  = 5
)

const (
	ConfidenceHigh             = "high"
	ConfidenceLowPriceVariance = "low_price_variance"
	ConfidenceLowR2            = "low_r2"
)

type EstimateRequest struct {
	ProductID  uuid.UUID `json:"product_id"`
	WindowDays int       `json:"window_days"`
	MinPriceCV float64   `json:"min_price_cv"`
	MinR2      float64   `json:"min_r2"`
}

// QualityFlags carries each quality signal independently; the legacy
// Confidence label can only hold one at a time.
type QualityFlags struct {
	LowPriceVariance bool `json:"low_price_variance"`
	LowR2            bool `json:"low_r2"`
}

type Estimate struct {
	ProductID   uuid.UUID    `json:"product_id"`
	ModelRunID  uuid.UUID    `json:"model_run_id"`
	Elasticity  float64      `json:"elasticity"`
	R2          float64      `json:"r2"`
	Confidence  string       `json:"confidence"`
	Flags       QualityFlags `json:"flags"`
	DataPoints  int          `json:"data_points"`
	PriceCV     float64      `json:"price_cv"`
	WindowDays  int          `json:"window_days"`
	WindowStart time.Time    `json:"window_start"`
	WindowEnd   time.Time    `json:"window_end"`
}

var (
	ErrInvalidProduct             = errors.New("invalid_product_id")
	ErrInsufficientData           = errors.New("insufficient_sales_data")
	ErrInsufficientPriceVariation = errors.New("insufficient_price_variation")
)

type Service interface {
	Estimate(ctx context.Context, req EstimateRequest) (*Estimate, error)
}
