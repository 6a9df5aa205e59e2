package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/sales/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.SalesFact{}, &domain.Cost{}))
	return db
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestUpsertLastWriteWins(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	productID := uuid.New()

	first := &domain.SalesFact{
		ID:        1,
		ProductID: productID,
		Date:      day(1),
		UnitsSold: 10,
		Price:     5,
		Revenue:   50,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Upsert(ctx, db, first))

	second := &domain.SalesFact{
		ID:        2,
		ProductID: productID,
		Date:      day(1),
		UnitsSold: 12,
		Price:     6,
		Revenue:   72,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Upsert(ctx, db, second))

	var facts []domain.SalesFact
	require.NoError(t, db.Find(&facts).Error)
	require.Len(t, facts, 1)
	assert.Equal(t, 12, facts[0].UnitsSold)
	assert.Equal(t, 6.0, facts[0].Price)
	assert.Equal(t, 72.0, facts[0].Revenue)
}

func TestUpsertDistinctDatesKeepBothRows(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	productID := uuid.New()

	for i, d := range []time.Time{day(1), day(2)} {
		require.NoError(t, repo.Upsert(ctx, db, &domain.SalesFact{
			ID:        int64(i + 1),
			ProductID: productID,
			Date:      d,
			UnitsSold: 1,
			Price:     1,
			Revenue:   1,
			CreatedAt: time.Now().UTC(),
		}))
	}

	var count int64
	require.NoError(t, db.Model(&domain.SalesFact{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestWindowByProductBounds(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	productID := uuid.New()

	for i := 1; i <= 10; i++ {
		require.NoError(t, repo.Upsert(ctx, db, &domain.SalesFact{
			ID:        int64(i),
			ProductID: productID,
			Date:      day(i),
			UnitsSold: i,
			Price:     1,
			Revenue:   float64(i),
			CreatedAt: time.Now().UTC(),
		}))
	}

	items, err := repo.WindowByProduct(ctx, db, productID, day(3), day(6))
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, day(3), items[0].Date)
	assert.Equal(t, day(6), items[3].Date)
}

func TestLatestByProduct(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	productID := uuid.New()

	missing, err := repo.LatestByProduct(ctx, db, productID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Upsert(ctx, db, &domain.SalesFact{
			ID:        int64(i),
			ProductID: productID,
			Date:      day(i),
			UnitsSold: i * 10,
			Price:     float64(i),
			Revenue:   float64(i * i * 10),
			CreatedAt: time.Now().UTC(),
		}))
	}

	latest, err := repo.LatestByProduct(ctx, db, productID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, day(3), latest.Date)
	assert.Equal(t, 30, latest.UnitsSold)
}

func TestLatestUnitCost(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	productID := uuid.New()

	missing, err := repo.LatestUnitCost(ctx, db, productID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.Create(&domain.Cost{
		ID: 1, ProductID: productID, Date: day(1), UnitCost: 3.5, CreatedAt: time.Now().UTC(),
	}).Error)
	require.NoError(t, db.Create(&domain.Cost{
		ID: 2, ProductID: productID, Date: day(5), UnitCost: 4.25, CreatedAt: time.Now().UTC(),
	}).Error)

	cost, err := repo.LatestUnitCost(ctx, db, productID)
	require.NoError(t, err)
	require.NotNil(t, cost)
	assert.Equal(t, 4.25, *cost)
}

func TestSummarize(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	empty, err := repo.Summarize(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalFacts)
	assert.Zero(t, empty.TotalRevenue)

	productA, productB := uuid.New(), uuid.New()
	require.NoError(t, repo.Upsert(ctx, db, &domain.SalesFact{
		ID: 1, ProductID: productA, Date: day(1), UnitsSold: 10, Price: 2, Revenue: 20, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, repo.Upsert(ctx, db, &domain.SalesFact{
		ID: 2, ProductID: productB, Date: day(1), UnitsSold: 5, Price: 4, Revenue: 20, CreatedAt: time.Now().UTC(),
	}))

	summary, err := repo.Summarize(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.TotalFacts)
	assert.EqualValues(t, 15, summary.TotalUnits)
	assert.Equal(t, 40.0, summary.TotalRevenue)
	assert.EqualValues(t, 2, summary.TotalProducts)
}
