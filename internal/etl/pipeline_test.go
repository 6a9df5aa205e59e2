package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/cache"
	"github.com/smallbiznis/pricecast/internal/clock"
	"github.com/smallbiznis/pricecast/internal/config"
	orgdomain "github.com/smallbiznis/pricecast/internal/organization/domain"
	orgrepo "github.com/smallbiznis/pricecast/internal/organization/repository"
	productdomain "github.com/smallbiznis/pricecast/internal/product/domain"
	productrepo "github.com/smallbiznis/pricecast/internal/product/repository"
	productservice "github.com/smallbiznis/pricecast/internal/product/service"
	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
	salesrepo "github.com/smallbiznis/pricecast/internal/sales/repository"
	stagingdomain "github.com/smallbiznis/pricecast/internal/staging/domain"
	stagingrepo "github.com/smallbiznis/pricecast/internal/staging/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&productdomain.Product{},
		&stagingdomain.RawSale{},
		&salesdomain.SalesFact{},
	))
	return db
}

func newTestPipeline(t *testing.T, db *gorm.DB, autoCreate bool) (*Pipeline, *cache.ProductLookupCache) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{}
	cfg.ETL.BatchSize = DefaultBatchSize
	cfg.ETL.AutoCreateProducts = autoCreate

	lookup := cache.NewProductLookupCache()
	products := productservice.New(productservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		Config:  cfg,
		Repo:    productrepo.Provide(),
		OrgRepo: orgrepo.Provide(),
		Lookup:  lookup,
	})

	return New(Params{
		Config:   cfg,
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)),
		Staging:  stagingrepo.Provide(),
		Sales:    salesrepo.Provide(),
		Products: products,
	}), lookup
}

func stageRecord(t *testing.T, db *gorm.DB, payload map[string]any) stagingdomain.RawSale {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	row := stagingdomain.RawSale{
		UploadedAt: time.Now().UTC(),
		Source:     "test",
		RawJSON:    datatypes.JSON(raw),
		Status:     stagingdomain.StatusPending,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestPipelineRun(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPipeline(t, db, true)

	productID := uuid.New()
	stageRecord(t, db, map[string]any{
		"product_id": productID.String(),
		"date":       "2026-03-01",
		"units_sold": 10,
		"price":      5.0,
	})
	stageRecord(t, db, map[string]any{
		"product_id": productID.String(),
		"date":       "2026-03-02",
		"quantity":   4,
		"unit_price": 6.0,
	})
	stageRecord(t, db, map[string]any{
		"product_id": productID.String(),
		"date":       "2026-03-03",
		"units_sold": -1,
		"price":      5.0,
	})

	res, err := p.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Claimed)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Failed)

	var facts []salesdomain.SalesFact
	require.NoError(t, db.Order("date ASC").Find(&facts).Error)
	require.Len(t, facts, 2)
	assert.Equal(t, 10, facts[0].UnitsSold)
	assert.Equal(t, 50.0, facts[0].Revenue)
	assert.Equal(t, 4, facts[1].UnitsSold)
	assert.Equal(t, 24.0, facts[1].Revenue)

	var failed []stagingdomain.RawSale
	require.NoError(t, db.Where("status = ?", stagingdomain.StatusFailed).Find(&failed).Error)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].ErrorMessage)
	assert.Contains(t, *failed[0].ErrorMessage, "units_sold")

	var pending int64
	require.NoError(t, db.Model(&stagingdomain.RawSale{}).
		Where("status = ?", stagingdomain.StatusPending).
		Count(&pending).Error)
	assert.Zero(t, pending)
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPipeline(t, db, true)

	productID := uuid.New()
	stageRecord(t, db, map[string]any{
		"product_id": productID.String(),
		"date":       "2026-03-01",
		"units_sold": 10,
		"price":      5.0,
	})

	res, err := p.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	// Nothing pending, so a second run is a no-op.
	res, err = p.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, res.Claimed)

	var count int64
	require.NoError(t, db.Model(&salesdomain.SalesFact{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPipelineUpsertLastWriteWins(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPipeline(t, db, true)

	productID := uuid.New()
	stageRecord(t, db, map[string]any{
		"product_id": productID.String(),
		"date":       "2026-03-01",
		"units_sold": 10,
		"price":      5.0,
	})
	stageRecord(t, db, map[string]any{
		"product_id": productID.String(),
		"date":       "2026-03-01",
		"units_sold": 12,
		"price":      5.5,
	})

	res, err := p.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)

	var facts []salesdomain.SalesFact
	require.NoError(t, db.Find(&facts).Error)
	require.Len(t, facts, 1)
	assert.Equal(t, 12, facts[0].UnitsSold)
	assert.Equal(t, 5.5, facts[0].Price)
	assert.Equal(t, 66.0, facts[0].Revenue)
}

func TestPipelineAutoCreatesProduct(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPipeline(t, db, true)

	productID := uuid.New()
	stageRecord(t, db, map[string]any{
		"product_id": productID.String(),
		"date":       "2026-03-01",
		"units_sold": 1,
		"price":      2.0,
	})

	_, err := p.Run(context.Background(), 0)
	require.NoError(t, err)

	var product productdomain.Product
	require.NoError(t, db.First(&product, "id = ?", productID).Error)
	assert.Contains(t, product.SKU, "AUTO-")
	assert.Equal(t, "USD", product.Currency)

	var org orgdomain.Organization
	require.NoError(t, db.First(&org).Error)
	assert.Equal(t, "Default Organization", org.Name)
	assert.Equal(t, org.ID, product.OrgID)
}

func TestPipelineMarksLookupCacheAfterCommit(t *testing.T) {
	db := newTestDB(t)
	p, lookup := newTestPipeline(t, db, true)

	productID := uuid.New()
	stageRecord(t, db, map[string]any{
		"product_id": productID.String(),
		"date":       "2026-03-01",
		"units_sold": 1,
		"price":      2.0,
	})

	assert.False(t, lookup.Exists(productID.String()))

	_, err := p.Run(context.Background(), 0)
	require.NoError(t, err)

	// Marked only once the batch transaction has committed.
	assert.True(t, lookup.Exists(productID.String()))
}

func TestPipelineAutoCreateDisabled(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPipeline(t, db, false)

	stageRecord(t, db, map[string]any{
		"product_id": uuid.New().String(),
		"date":       "2026-03-01",
		"units_sold": 1,
		"price":      2.0,
	})

	res, err := p.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Processed)

	var count int64
	require.NoError(t, db.Model(&salesdomain.SalesFact{}).Count(&count).Error)
	assert.Zero(t, count)
}
