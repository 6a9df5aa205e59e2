package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// RawSale is one staged upload row. Rows are append-only: the pipeline flips
// status pending -> processed|failed exactly once and nothing is ever deleted.
type RawSale struct {
	RawID        int64          `json:"raw_id" gorm:"column:raw_id;primaryKey;autoIncrement"`
	UploadedAt   time.Time      `json:"uploaded_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	Source       string         `json:"source" gorm:"type:text"`
	RawJSON      datatypes.JSON `json:"raw_json" gorm:"column:raw_json;not null"`
	Status       string         `json:"status" gorm:"type:text;not null;default:pending"`
	ErrorMessage *string        `json:"error_message,omitempty" gorm:"type:text"`
}

func (RawSale) TableName() string { return "raw_sales" }
