package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the fact or, on (product_id, date) conflict, overwrites
	// units/price/revenue/created_at with the new values (last write wins).
	Upsert(ctx context.Context, tx *gorm.DB, fact *SalesFact) error
	HistoryByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID) ([]SalesFact, error)
	WindowByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID, from, to time.Time) ([]SalesFact, error)
	LatestByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*SalesFact, error)
	LatestUnitCost(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*float64, error)
	Summarize(ctx context.Context, db *gorm.DB) (Summary, error)
}
