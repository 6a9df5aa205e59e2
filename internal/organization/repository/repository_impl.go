package repository

import (
	"context"

	"github.com/smallbiznis/pricecast/internal/organization/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, org *domain.Organization) error {
	return db.WithContext(ctx).Create(org).Error
}

func (r *repo) FindFirst(ctx context.Context, db *gorm.DB) (*domain.Organization, error) {
	var items []domain.Organization
	err := db.WithContext(ctx).
		Order("created_at ASC").
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
