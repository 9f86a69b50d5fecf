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
	allocations   metric.Int64Counter
	reversals     metric.Int64Counter
	lockConflicts metric.Int64Counter
	overpaid      metric.Int64Counter
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

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "feeledger"
	}
	meter := provider.Meter(name)

	allocations, err := meter.Int64Counter("feeledger_allocations_total")
	if err != nil {
		return nil, err
	}
	reversals, err := meter.Int64Counter("feeledger_reversals_total")
	if err != nil {
		return nil, err
	}
	lockConflicts, err := meter.Int64Counter("feeledger_lock_conflicts_total")
	if err != nil {
		return nil, err
	}
	overpaid, err := meter.Int64Counter("feeledger_overpaid_payments_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		allocations:   allocations,
		reversals:     reversals,
		lockConflicts: lockConflicts,
		overpaid:      overpaid,
	}, nil
}

// RecordAllocation increments allocation counts per payment method.
func (m *Metrics) RecordAllocation(ctx context.Context, method string, months int) {
	if m == nil {
		return
	}
	m.allocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", strings.TrimSpace(method)),
		attribute.Int("months", months),
	))
}

// RecordReversal increments reversal counts per scope.
func (m *Metrics) RecordReversal(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.reversals.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", strings.TrimSpace(scope)),
	))
}

// RecordLockConflict increments serialization conflict counts.
func (m *Metrics) RecordLockConflict(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.lockConflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
	))
}

// RecordOverpaid increments counts of payments returned with a remainder.
func (m *Metrics) RecordOverpaid(ctx context.Context) {
	if m == nil {
		return
	}
	m.overpaid.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
