package forecast

import (
	"fmt"
	"math"
	"time"

	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
)

var (
	lagDays   = []int{1, 7, 14, 28}
	maWindows = []int{7, 14, 28}
)

// FeatureNames lists the model inputs in column order. The order is part of
// the trained model's contract: future rows must be assembled identically.
var FeatureNames = buildFeatureNames()

func buildFeatureNames() []string {
	names := []string{"price", "day_of_week", "month", "day_of_month"}
	for _, lag := range lagDays {
		names = append(names,
			fmt.Sprintf("units_sold_lag_%d", lag),
			fmt.Sprintf("price_lag_%d", lag),
		)
	}
	for _, w := range maWindows {
		names = append(names,
			fmt.Sprintf("units_sold_ma_%d", w),
			fmt.Sprintf("price_ma_%d", w),
		)
	}
	return append(names, "price_change", "price_change_lag_1")
}

// featureFrame holds the engineered rows aligned with their dates and the
// target series.
type featureFrame struct {
	Dates []time.Time
	X     [][]float64
	Y     []float64
}

// buildFeatureFrame engineers lag, moving-average, calendar, and price-change
// features from daily sales history. History must be sorted by date. Rows
// whose lag features reach before the start of the series are dropped, which
// removes the first max(lagDays) rows.
func buildFeatureFrame(history []salesdomain.SalesFact) featureFrame {
	n := len(history)
	units := make([]float64, n)
	prices := make([]float64, n)
	for i, f := range history {
		units[i] = float64(f.UnitsSold)
		prices[i] = f.Price
	}

	var frame featureFrame
	for i := 0; i < n; i++ {
		row, ok := featureRow(units, prices, history[i].Date, i)
		if !ok {
			continue
		}
		frame.Dates = append(frame.Dates, history[i].Date)
		frame.X = append(frame.X, row)
		frame.Y = append(frame.Y, units[i])
	}
	return frame
}

// featureRow assembles the feature vector for position i of the series.
// ok is false when any lag reaches before the series start.
func featureRow(units, prices []float64, date time.Time, i int) ([]float64, bool) {
	row := make([]float64, 0, len(FeatureNames))
	row = append(row, prices[i])
	dow, month, day := calendarFeatures(date)
	row = append(row, dow, month, day)

	for _, lag := range lagDays {
		j := i - lag
		if j < 0 {
			return nil, false
		}
		row = append(row, units[j], prices[j])
	}

	for _, w := range maWindows {
		row = append(row, trailingMean(units, i, w), trailingMean(prices, i, w))
	}

	change, ok := priceChange(prices, i)
	if !ok {
		return nil, false
	}
	changeLag, ok := priceChange(prices, i-1)
	if !ok {
		return nil, false
	}
	row = append(row, change, changeLag)

	if hasNaN(row) {
		return nil, false
	}
	return row, true
}

// calendarFeatures returns day of week (Monday as 0), month, and day of
// month for the given date.
func calendarFeatures(date time.Time) (dow, month, day float64) {
	d := (int(date.Weekday()) + 6) % 7
	return float64(d), float64(date.Month()), float64(date.Day())
}

// trailingMean averages the last w values ending at index i, shrinking the
// window near the start of the series rather than dropping the row.
func trailingMean(xs []float64, i, w int) float64 {
	lo := i - w + 1
	if lo < 0 {
		lo = 0
	}
	var sum float64
	for j := lo; j <= i; j++ {
		sum += xs[j]
	}
	return sum / float64(i-lo+1)
}

func priceChange(prices []float64, i int) (float64, bool) {
	if i < 1 {
		return 0, false
	}
	prev := prices[i-1]
	if prev == 0 {
		return math.Inf(1), true
	}
	return (prices[i] - prev) / prev, true
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
