package domain

import (
	"time"

	"github.com/google/uuid"
)

// SalesFact is the canonical daily sales row. Exactly one row exists per
// (product, date); reloads overwrite in place.
type SalesFact struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:ux_sales_daily_product_date,priority:1"`
	Date      time.Time `json:"date" gorm:"type:date;not null;uniqueIndex:ux_sales_daily_product_date,priority:2"`
	UnitsSold int       `json:"units_sold" gorm:"not null"`
	Price     float64   `json:"price" gorm:"type:numeric;not null"`
	Revenue   float64   `json:"revenue" gorm:"type:numeric;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SalesFact) TableName() string { return "sales_daily" }

// Cost is the dated per-unit cost used by profit optimization.
type Cost struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:ix_costs_product_date,priority:1"`
	Date      time.Time `json:"date" gorm:"type:date;not null;index:ix_costs_product_date,priority:2"`
	UnitCost  float64   `json:"unit_cost" gorm:"type:numeric;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Cost) TableName() string { return "costs" }

// Summary backs the dashboard rollup endpoint.
type Summary struct {
	TotalFacts    int64   `json:"total_facts"`
	TotalUnits    int64   `json:"total_units"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalProducts int64   `json:"total_products"`
}
