package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes product lookups plus the ensure-exists capability used by
// the ETL pipeline. Auto-creation of missing products is a deliberate
// "never drop data" policy; it can be disabled via configuration, in which
// case EnsureExists fails for unknown products.
type Service interface {
	// EnsureExists runs inside the caller's transaction so product creation
	// commits or rolls back together with the dependent fact insert. It never
	// touches the lookup cache: rows visible inside tx may still roll back,
	// so callers mark IDs via MarkKnown once the transaction has committed.
	EnsureExists(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	// MarkKnown records committed product IDs in the lookup cache.
	MarkKnown(ids []uuid.UUID)
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
}

type Response struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}

var (
	ErrNotFound           = errors.New("product_not_found")
	ErrInvalidID          = errors.New("invalid_product_id")
	ErrAutoCreateDisabled = errors.New("unknown_product_autocreate_disabled")
)
