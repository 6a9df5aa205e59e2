package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Product, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]Product, error)
}
