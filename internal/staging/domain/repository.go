package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	BulkInsert(ctx context.Context, db *gorm.DB, rows []RawSale) error
	// ClaimPending selects up to limit pending rows with FOR UPDATE SKIP
	// LOCKED so concurrent workers never double-process a record. Must be
	// called inside a transaction; locks are held until it commits.
	ClaimPending(ctx context.Context, tx *gorm.DB, limit int) ([]RawSale, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, rawID int64) error
	MarkFailed(ctx context.Context, tx *gorm.DB, rawID int64, detail string) error
	CountByStatus(ctx context.Context, db *gorm.DB) (map[string]int64, error)
}
