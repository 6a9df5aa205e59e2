package cache

import (
	"time"

	"go.uber.org/fx"
)

const defaultProductTTL = 10 * time.Minute

// ProductLookupCache memoizes positive product existence checks so the ETL
// hot path does not re-query the products table for every staged record.
// Only positive results are cached; a miss always falls through to the store.
type ProductLookupCache struct {
	known Cache[string, struct{}]
	ttl   time.Duration
}

func NewProductLookupCache() *ProductLookupCache {
	return &ProductLookupCache{
		known: NewTTLCache[string, struct{}](),
		ttl:   defaultProductTTL,
	}
}

func (c *ProductLookupCache) Exists(productID string) bool {
	if c == nil {
		return false
	}
	_, ok := c.known.Get(productID)
	return ok
}

func (c *ProductLookupCache) MarkExists(productID string) {
	if c == nil || productID == "" {
		return
	}
	c.known.Set(productID, struct{}{}, c.ttl)
}

var Module = fx.Module("cache",
	fx.Provide(NewProductLookupCache),
)
