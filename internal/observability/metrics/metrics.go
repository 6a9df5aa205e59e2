package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	recordsProcessed metric.Int64Counter
	recordsFailed    metric.Int64Counter
	batchDuration    metric.Float64Histogram
	modelRuns        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pricecast"
	}
	meter := provider.Meter(name)

	recordsProcessed, err := meter.Int64Counter("pricecast_etl_records_processed_total")
	if err != nil {
		return nil, err
	}
	recordsFailed, err := meter.Int64Counter("pricecast_etl_records_failed_total")
	if err != nil {
		return nil, err
	}
	batchDuration, err := meter.Float64Histogram("pricecast_etl_batch_duration_seconds")
	if err != nil {
		return nil, err
	}
	modelRuns, err := meter.Int64Counter("pricecast_model_runs_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		recordsProcessed: recordsProcessed,
		recordsFailed:    recordsFailed,
		batchDuration:    batchDuration,
		modelRuns:        modelRuns,
	}, nil
}

func (m *Metrics) AddProcessed(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.recordsProcessed.Add(ctx, n)
}

func (m *Metrics) AddFailed(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.recordsFailed.Add(ctx, n)
}

func (m *Metrics) ObserveBatch(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) IncModelRun(ctx context.Context, model string) {
	if m == nil {
		return
	}
	m.modelRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported metrics exporter protocol %q", protocol)
	}
}
