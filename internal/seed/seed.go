package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	stagingdomain "github.com/smallbiznis/pricecast/internal/staging/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultProducts = 20
	defaultRecords  = 5000
	insertBatchSize = 1000

	// Demand parameters for the synthetic generator.
	meanUnits   = 20.0
	stddevUnits = 5.0
	minPrice    = 5.0
	maxPrice    = 100.0
	outlierRate = 0.01
)

// EnsureDemoData stages synthetic raw sales when the staging table is empty.
// Rows go through the regular pipeline, so seeded data exercises the same
// normalization, auto-creation, and upsert paths as real uploads.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	var count int64
	if err := db.WithContext(ctx).Model(&stagingdomain.RawSale{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(42))
	productIDs := make([]uuid.UUID, defaultProducts)
	for i := range productIDs {
		productIDs[i] = uuid.New()
	}

	start := time.Now().UTC().AddDate(0, 0, -120)
	rows := make([]stagingdomain.RawSale, 0, defaultRecords)
	for i := 0; i < defaultRecords; i++ {
		payload, err := syntheticSale(rng, productIDs, start)
		if err != nil {
			return err
		}
		rows = append(rows, stagingdomain.RawSale{
			UploadedAt: time.Now().UTC(),
			Source:     "synthetic",
			RawJSON:    payload,
			Status:     stagingdomain.StatusPending,
		})
	}

	return db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error
}

// syntheticSale draws one plausible sales record: normally distributed units
// around a baseline, uniform prices, and the occasional demand spike.
func syntheticSale(rng *rand.Rand, productIDs []uuid.UUID, start time.Time) (datatypes.JSON, error) {
	productID := productIDs[rng.Intn(len(productIDs))]
	date := start.AddDate(0, 0, rng.Intn(120))

	units := int(math.Max(1, math.Round(rng.NormFloat64()*stddevUnits+meanUnits)))
	price := math.Round((minPrice+rng.Float64()*(maxPrice-minPrice))*100) / 100

	if rng.Float64() < outlierRate {
		units *= 5 + rng.Intn(16)
	}

	payload := map[string]any{
		"product_id": productID.String(),
		"date":       date.Format("2006-01-02"),
		"units_sold": units,
		"price":      price,
		"revenue":    math.Round(float64(units)*price*100) / 100,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal synthetic sale: %w", err)
	}
	return datatypes.JSON(raw), nil
}
