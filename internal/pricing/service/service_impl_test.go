package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/clock"
	modelrundomain "github.com/smallbiznis/pricecast/internal/modelrun/domain"
	modelrunrepo "github.com/smallbiznis/pricecast/internal/modelrun/repository"
	"github.com/smallbiznis/pricecast/internal/pricing/domain"
	productdomain "github.com/smallbiznis/pricecast/internal/product/domain"
	productrepo "github.com/smallbiznis/pricecast/internal/product/repository"
	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
	salesrepo "github.com/smallbiznis/pricecast/internal/sales/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var pricingNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func newPricingService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&productdomain.Product{},
		&salesdomain.SalesFact{},
		&salesdomain.Cost{},
		&modelrundomain.ModelRun{},
		&modelrundomain.ElasticityEstimate{},
		&modelrundomain.Forecast{},
		&modelrundomain.PriceRecommendation{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(pricingNow),
		Products: productrepo.Provide(),
		Sales:    salesrepo.Provide(),
		Runs:     modelrunrepo.Provide(),
	})
	return svc, db
}

// seedBaseline creates a product with elasticity -2 and a latest fact of
// price 10, 100 units sold.
func seedBaseline(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()

	productID := uuid.New()
	require.NoError(t, db.Create(&productdomain.Product{
		ID:        productID,
		OrgID:     uuid.New(),
		SKU:       "SKU-1",
		Name:      "Test Product",
		Currency:  "USD",
		CreatedAt: pricingNow,
	}).Error)

	require.NoError(t, db.Create(&modelrundomain.ElasticityEstimate{
		ID:          1,
		ProductID:   productID,
		ModelRunID:  uuid.New(),
		WindowStart: pricingNow.AddDate(0, 0, -90),
		WindowEnd:   pricingNow,
		Elasticity:  -2.0,
		R2:          0.95,
		CreatedAt:   pricingNow,
	}).Error)

	require.NoError(t, db.Create(&salesdomain.SalesFact{
		ID:        1,
		ProductID: productID,
		Date:      time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		UnitsSold: 100,
		Price:     10,
		Revenue:   1000,
		CreatedAt: pricingNow,
	}).Error)
	return productID
}

func TestRecommendRevenueObjective(t *testing.T) {
	svc, db := newPricingService(t)
	productID := seedBaseline(t, db)

	res, err := svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		Objective: domain.ObjectiveRevenue,
	})
	require.NoError(t, err)

	assert.Equal(t, 5.0, res.PMin)
	assert.Equal(t, 15.0, res.PMax)
	assert.Equal(t, -2.0, res.Elasticity)
	require.Len(t, res.Recommendations, domain.DefaultHorizon)

	// With elasticity -2, revenue R(p) = 10000/p falls in price, so the
	// optimum sits at the lower bound.
	first := res.Recommendations[0]
	assert.Equal(t, time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC), first.TargetDate)
	assert.InDelta(t, 5.0, first.SuggestedPrice, 1e-9)
	assert.InDelta(t, 400.0, first.ExpectedUnits, 1e-9)
	assert.InDelta(t, 2000.0, first.ExpectedRevenue, 1e-9)
	assert.Zero(t, first.ExpectedProfit)

	var run modelrundomain.ModelRun
	require.NoError(t, db.First(&run, "id = ?", res.ModelRunID).Error)
	assert.Equal(t, "price_optimization", run.ModelName)

	var count int64
	require.NoError(t, db.Model(&modelrundomain.PriceRecommendation{}).
		Where("model_run_id = ?", res.ModelRunID).
		Count(&count).Error)
	assert.EqualValues(t, domain.DefaultHorizon, count)
}

func TestRecommendProfitObjective(t *testing.T) {
	svc, db := newPricingService(t)
	productID := seedBaseline(t, db)

	require.NoError(t, db.Create(&salesdomain.Cost{
		ID:        1,
		ProductID: productID,
		Date:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		UnitCost:  4,
		CreatedAt: pricingNow,
	}).Error)

	res, err := svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		Objective: domain.ObjectiveProfit,
	})
	require.NoError(t, err)

	// Profit (p-4)*10000/p^2 peaks at p = 2c = 8; the grid lands within one
	// step of the analytic optimum.
	first := res.Recommendations[0]
	assert.InDelta(t, 8.0, first.SuggestedPrice, 0.11)
	assert.InDelta(t, 625.0, first.ExpectedProfit, 0.5)
	assert.Positive(t, first.ExpectedRevenue)
}

func TestRecommendProfitWithoutCostData(t *testing.T) {
	svc, db := newPricingService(t)
	productID := seedBaseline(t, db)

	// Zero cost turns profit into revenue, so the optimum is again pmin.
	res, err := svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		Objective: domain.ObjectiveProfit,
	})
	require.NoError(t, err)

	first := res.Recommendations[0]
	assert.InDelta(t, 5.0, first.SuggestedPrice, 1e-9)
	assert.InDelta(t, 2000.0, first.ExpectedProfit, 1e-9)
}

func TestRecommendUsesForecastQuantity(t *testing.T) {
	svc, db := newPricingService(t)
	productID := seedBaseline(t, db)

	target := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&modelrundomain.Forecast{
		ID:             1,
		ProductID:      productID,
		ModelRunID:     uuid.New(),
		TargetDate:     target,
		PredictedUnits: 50,
		CreatedAt:      pricingNow,
	}).Error)

	res, err := svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
	})
	require.NoError(t, err)

	// The forecasted date scales the demand curve to 50 units; the rest
	// fall back to the 100 unit baseline.
	first := res.Recommendations[0]
	assert.Equal(t, target, first.TargetDate)
	assert.InDelta(t, 200.0, first.ExpectedUnits, 1e-9)

	second := res.Recommendations[1]
	assert.InDelta(t, 400.0, second.ExpectedUnits, 1e-9)
}

func TestRecommendCustomBounds(t *testing.T) {
	svc, db := newPricingService(t)
	productID := seedBaseline(t, db)

	pmin, pmax := 9.0, 12.0
	res, err := svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		PMin:      &pmin,
		PMax:      &pmax,
	})
	require.NoError(t, err)
	assert.InDelta(t, 9.0, res.Recommendations[0].SuggestedPrice, 1e-9)
}

func TestRecommendValidation(t *testing.T) {
	svc, db := newPricingService(t)
	productID := seedBaseline(t, db)

	_, err := svc.Recommend(context.Background(), domain.RecommendRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)

	_, err = svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		Objective: "margin",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidObjective)

	bad := 20.0
	low := 10.0
	_, err = svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		PMin:      &bad,
		PMax:      &low,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPriceBounds)

	neg := -1.0
	high := 5.0
	_, err = svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		PMin:      &neg,
		PMax:      &high,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPriceBounds)
}

func TestRecommendPreconditions(t *testing.T) {
	svc, db := newPricingService(t)

	_, err := svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	// Product without an elasticity estimate.
	productID := uuid.New()
	require.NoError(t, db.Create(&productdomain.Product{
		ID:        productID,
		OrgID:     uuid.New(),
		SKU:       "SKU-2",
		Name:      "No Estimate",
		Currency:  "USD",
		CreatedAt: pricingNow,
	}).Error)

	_, err = svc.Recommend(context.Background(), domain.RecommendRequest{ProductID: productID})
	assert.ErrorIs(t, err, domain.ErrElasticityNotFound)

	// Estimate but no sales history.
	require.NoError(t, db.Create(&modelrundomain.ElasticityEstimate{
		ID:          99,
		ProductID:   productID,
		ModelRunID:  uuid.New(),
		WindowStart: pricingNow.AddDate(0, 0, -90),
		WindowEnd:   pricingNow,
		Elasticity:  -1.5,
		R2:          0.8,
		CreatedAt:   pricingNow,
	}).Error)

	_, err = svc.Recommend(context.Background(), domain.RecommendRequest{ProductID: productID})
	assert.ErrorIs(t, err, domain.ErrSalesNotFound)
}

func TestListFiltersByObjective(t *testing.T) {
	svc, db := newPricingService(t)
	productID := seedBaseline(t, db)

	_, err := svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		Objective: domain.ObjectiveRevenue,
	})
	require.NoError(t, err)

	require.NoError(t, db.Create(&salesdomain.Cost{
		ID:        2,
		ProductID: productID,
		Date:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		UnitCost:  4,
		CreatedAt: pricingNow,
	}).Error)
	_, err = svc.Recommend(context.Background(), domain.RecommendRequest{
		ProductID: productID,
		Objective: domain.ObjectiveProfit,
	})
	require.NoError(t, err)

	all, err := svc.List(context.Background(), productID, nil, nil, "")
	require.NoError(t, err)
	assert.Len(t, all, 2*domain.DefaultHorizon)

	profitOnly, err := svc.List(context.Background(), productID, nil, nil, domain.ObjectiveProfit)
	require.NoError(t, err)
	require.Len(t, profitOnly, domain.DefaultHorizon)
	for _, r := range profitOnly {
		assert.Equal(t, domain.ObjectiveProfit, r.Objective)
	}
}
