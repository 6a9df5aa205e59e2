package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID `json:"organization_id" gorm:"column:org_id;type:uuid;not null"`
	SKU       string    `json:"sku" gorm:"column:sku;type:text;not null"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Currency  string    `json:"currency" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
