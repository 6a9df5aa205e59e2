package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, org *Organization) error
	FindFirst(ctx context.Context, db *gorm.DB) (*Organization, error)
}
