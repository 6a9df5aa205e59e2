package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/pricecast/internal/clock"
	"github.com/smallbiznis/pricecast/internal/etl"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler dependencies are not configured")

// Config controls the background ETL drain loop.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		BatchSize:   etl.DefaultBatchSize,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Pipeline *etl.Pipeline
	Clock    clock.Clock
	Config   Config `optional:"true"`
}

// Scheduler periodically drains pending staging rows. Concurrency safety
// comes from the pipeline's row claims, so multiple instances can run the
// same loop against one database.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	pipeline *etl.Pipeline
	clock    clock.Clock
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Pipeline == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		cfg:      p.Config.withDefaults(),
		pipeline: p.Pipeline,
		clock:    p.Clock,
	}, nil
}

// RunOnce drains the staging table and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	res, err := s.pipeline.Run(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if res.Claimed > 0 {
		s.log.Info("etl drain complete",
			zap.Int("claimed", res.Claimed),
			zap.Int("processed", res.Processed),
			zap.Int("failed", res.Failed),
		)
	}
	return nil
}

// RunForever runs the drain loop until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
