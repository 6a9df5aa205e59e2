package etl

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/clock"
	"github.com/smallbiznis/pricecast/internal/config"
	"github.com/smallbiznis/pricecast/internal/observability/metrics"
	productdomain "github.com/smallbiznis/pricecast/internal/product/domain"
	salesdomain "github.com/smallbiznis/pricecast/internal/sales/domain"
	stagingdomain "github.com/smallbiznis/pricecast/internal/staging/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultBatchSize = 500

// Result reports one pipeline run. Failed counts records whose staging rows
// were marked failed; they are terminal until re-uploaded.
type Result struct {
	Claimed   int `json:"claimed"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type Params struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Staging  stagingdomain.Repository
	Sales    salesdomain.Repository
	Products productdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// Pipeline drains pending staging rows into canonical daily sales facts.
type Pipeline struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	staging  stagingdomain.Repository
	sales    salesdomain.Repository
	products productdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) *Pipeline {
	return &Pipeline{
		cfg:      p.Config,
		db:       p.DB,
		log:      p.Log.Named("etl.pipeline"),
		genID:    p.GenID,
		clock:    p.Clock,
		staging:  p.Staging,
		sales:    p.Sales,
		products: p.Products,
		metrics:  p.Metrics,
	}
}

// Run claims and processes pending staging rows in batches until none are
// left or ctx is cancelled. Record-level failures are contained: the row is
// marked failed and the batch continues. Only infrastructure errors abort.
func (p *Pipeline) Run(ctx context.Context, batchSize int) (Result, error) {
	if batchSize <= 0 {
		batchSize = p.cfg.ETL.BatchSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var total Result
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		batch, err := p.runBatch(ctx, batchSize)
		if err != nil {
			return total, err
		}
		total.Claimed += batch.Claimed
		total.Processed += batch.Processed
		total.Failed += batch.Failed

		if batch.Claimed == 0 {
			break
		}
	}

	p.log.Info("pipeline run complete",
		zap.Int("claimed", total.Claimed),
		zap.Int("processed", total.Processed),
		zap.Int("failed", total.Failed),
	)
	return total, nil
}

// runBatch processes one claimed batch inside a single transaction, so the
// claim locks, status flips, product auto-creation, and fact upserts commit
// atomically. Product IDs touched by the batch go into the lookup cache only
// after the transaction commits.
func (p *Pipeline) runBatch(ctx context.Context, batchSize int) (Result, error) {
	start := time.Now()
	var res Result
	ensured := make(map[uuid.UUID]struct{})

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := p.staging.ClaimPending(ctx, tx, batchSize)
		if err != nil {
			return err
		}
		res.Claimed = len(rows)

		for _, row := range rows {
			productID, err := p.processRecord(ctx, tx, row)
			if err != nil {
				if !IsValidationError(err) && !isRecordError(err) {
					return err
				}
				res.Failed++
				detail := err.Error()
				p.log.Warn("record failed",
					zap.Int64("raw_id", row.RawID),
					zap.String("detail", detail),
				)
				if err := p.staging.MarkFailed(ctx, tx, row.RawID, detail); err != nil {
					return err
				}
				continue
			}
			res.Processed++
			ensured[productID] = struct{}{}
			if err := p.staging.MarkProcessed(ctx, tx, row.RawID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if len(ensured) > 0 {
		ids := make([]uuid.UUID, 0, len(ensured))
		for id := range ensured {
			ids = append(ids, id)
		}
		p.products.MarkKnown(ids)
	}

	p.metrics.AddProcessed(ctx, int64(res.Processed))
	p.metrics.AddFailed(ctx, int64(res.Failed))
	p.metrics.ObserveBatch(ctx, time.Since(start))
	return res, nil
}

func (p *Pipeline) processRecord(ctx context.Context, tx *gorm.DB, row stagingdomain.RawSale) (uuid.UUID, error) {
	var payload map[string]any
	if err := json.Unmarshal(row.RawJSON, &payload); err != nil {
		return uuid.Nil, validationErr("raw_json", "malformed JSON payload")
	}

	sale, err := Normalize(payload, p.clock.Now())
	if err != nil {
		return uuid.Nil, err
	}

	if err := p.products.EnsureExists(ctx, tx, sale.ProductID); err != nil {
		return uuid.Nil, err
	}

	fact := &salesdomain.SalesFact{
		ID:        p.genID.Generate().Int64(),
		ProductID: sale.ProductID,
		Date:      sale.Date,
		UnitsSold: sale.UnitsSold,
		Price:     sale.Price,
		Revenue:   sale.Revenue,
		CreatedAt: p.clock.Now(),
	}
	if err := p.sales.Upsert(ctx, tx, fact); err != nil {
		return uuid.Nil, err
	}
	return sale.ProductID, nil
}

// isRecordError reports whether err is attributable to the record itself
// rather than the database or the run.
func isRecordError(err error) bool {
	return errors.Is(err, productdomain.ErrNotFound) ||
		errors.Is(err, productdomain.ErrAutoCreateDisabled)
}
