package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/sales/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, tx *gorm.DB, fact *domain.SalesFact) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"units_sold", "price", "revenue", "created_at",
		}),
	}).Create(fact).Error
}

func (r *repo) HistoryByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID) ([]domain.SalesFact, error) {
	var items []domain.SalesFact
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("date ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) WindowByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID, from, to time.Time) ([]domain.SalesFact, error) {
	var items []domain.SalesFact
	err := db.WithContext(ctx).
		Where("product_id = ? AND date >= ? AND date <= ?", productID, from, to).
		Order("date ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LatestByProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*domain.SalesFact, error) {
	var items []domain.SalesFact
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("date DESC").
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

func (r *repo) LatestUnitCost(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*float64, error) {
	var items []domain.Cost
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("date DESC").
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	cost := items[0].UnitCost
	return &cost, nil
}

func (r *repo) Summarize(ctx context.Context, db *gorm.DB) (domain.Summary, error) {
	var summary domain.Summary
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total_facts,
		        COALESCE(SUM(units_sold), 0) AS total_units,
		        COALESCE(SUM(revenue), 0) AS total_revenue,
		        COUNT(DISTINCT product_id) AS total_products
		 FROM sales_daily`,
	).Scan(&summary).Error
	return summary, err
}
