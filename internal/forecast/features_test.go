package forecast

import (
	"testing"
	"time"

	"github.com/google/uuid"
	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticHistory(productID uuid.UUID, start time.Time, days int, units func(i int) int, price func(i int) float64) []salesdomain.SalesFact {
	out := make([]salesdomain.SalesFact, days)
	for i := 0; i < days; i++ {
		out[i] = salesdomain.SalesFact{
			ID:        int64(i + 1),
			ProductID: productID,
			Date:      start.AddDate(0, 0, i),
			UnitsSold: units(i),
			Price:     price(i),
		}
	}
	return out
}

func TestFeatureNamesOrder(t *testing.T) {
	want := []string{
		"price", "day_of_week", "month", "day_of_month",
		"units_sold_lag_1", "price_lag_1",
		"units_sold_lag_7", "price_lag_7",
		"units_sold_lag_14", "price_lag_14",
		"units_sold_lag_28", "price_lag_28",
		"units_sold_ma_7", "price_ma_7",
		"units_sold_ma_14", "price_ma_14",
		"units_sold_ma_28", "price_ma_28",
		"price_change", "price_change_lag_1",
	}
	assert.Equal(t, want, FeatureNames)
}

func TestBuildFeatureFrameDropsWarmup(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	history := syntheticHistory(uuid.New(), start, 40,
		func(i int) int { return i + 1 },
		func(i int) float64 { return 10 },
	)

	frame := buildFeatureFrame(history)

	// The longest lag is 28 days, so the first 28 rows cannot be built.
	require.Len(t, frame.X, 12)
	assert.Equal(t, start.AddDate(0, 0, 28), frame.Dates[0])
	assert.Equal(t, start.AddDate(0, 0, 39), frame.Dates[11])
}

func TestFeatureRowValues(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	history := syntheticHistory(uuid.New(), start, 40,
		func(i int) int { return i + 1 },
		func(i int) float64 { return 10 },
	)

	frame := buildFeatureFrame(history)
	require.NotEmpty(t, frame.X)

	// First engineered row is series index 28: 2026-01-29, a Thursday.
	row := frame.X[0]
	require.Len(t, row, len(FeatureNames))

	assert.Equal(t, 10.0, row[0])  // price
	assert.Equal(t, 3.0, row[1])   // day_of_week, Monday=0
	assert.Equal(t, 1.0, row[2])   // month
	assert.Equal(t, 29.0, row[3])  // day_of_month
	assert.Equal(t, 28.0, row[4])  // units_sold_lag_1
	assert.Equal(t, 10.0, row[5])  // price_lag_1
	assert.Equal(t, 22.0, row[6])  // units_sold_lag_7
	assert.Equal(t, 15.0, row[8])  // units_sold_lag_14
	assert.Equal(t, 1.0, row[10])  // units_sold_lag_28
	assert.Equal(t, 26.0, row[12]) // units_sold_ma_7: mean of 23..29
	assert.Equal(t, 22.5, row[14]) // units_sold_ma_14: mean of 16..29
	assert.Equal(t, 15.5, row[16]) // units_sold_ma_28: mean of 2..29
	assert.Equal(t, 0.0, row[18])  // price_change with constant price
	assert.Equal(t, 0.0, row[19])  // price_change_lag_1

	assert.Equal(t, 29.0, frame.Y[0])
}

func TestFeatureRowPriceChange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	history := syntheticHistory(uuid.New(), start, 31,
		func(i int) int { return 10 },
		func(i int) float64 {
			if i >= 29 {
				return 12
			}
			return 10
		},
	)

	frame := buildFeatureFrame(history)
	require.Len(t, frame.X, 3)

	// Index 29 is the day the price moved from 10 to 12.
	assert.InDelta(t, 0.2, frame.X[1][18], 1e-9)
	assert.InDelta(t, 0.0, frame.X[1][19], 1e-9)
	// The day after, the change shows up in the lagged column.
	assert.InDelta(t, 0.0, frame.X[2][18], 1e-9)
	assert.InDelta(t, 0.2, frame.X[2][19], 1e-9)
}
