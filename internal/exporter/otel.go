package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/filerstat/filerstat/internal/collector"
	"github.com/filerstat/filerstat/internal/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// OTELSink pushes derived metrics to an OTLP collector over grpc or http.
// Each derived counter becomes a float gauge recorded once per cycle; the
// SDK's periodic reader handles the actual push schedule.
type OTELSink struct {
	cfg           *config.OTELConfig
	host          string
	meterProvider *sdkmetric.MeterProvider
	meter         otelmetric.Meter
	logger        *slog.Logger

	mu     sync.Mutex
	gauges map[string]otelmetric.Float64Gauge
}

// NewOTELSink creates an OTLP push sink.
func NewOTELSink(cfg *config.OTELConfig, host string, logger *slog.Logger) (*OTELSink, error) {
	res, err := buildResource(cfg.Resource)
	if err != nil {
		return nil, err
	}

	exp, err := buildExporter(cfg)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(
		exp,
		sdkmetric.WithInterval(cfg.Interval),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	return &OTELSink{
		cfg:           cfg,
		host:          host,
		meterProvider: meterProvider,
		meter:         meterProvider.Meter("filerstat"),
		logger:        logger,
		gauges:        make(map[string]otelmetric.Float64Gauge),
	}, nil
}

// buildExporter creates the OTLP exporter for the configured protocol.
func buildExporter(cfg *config.OTELConfig) (sdkmetric.Exporter, error) {
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithInsecure(),
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
		}
		exp, err := otlpmetricgrpc.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP grpc exporter: %w", err)
		}
		return exp, nil

	default:
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithInsecure(),
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
		}
		exp, err := otlpmetrichttp.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP http exporter: %w", err)
		}
		return exp, nil
	}
}

// buildResource creates the OTEL resource from configured attributes.
func buildResource(resourceAttrs map[string]string) (*resource.Resource, error) {
	attrs := make([]attribute.KeyValue, 0, len(resourceAttrs))
	for k, v := range resourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Name identifies the sink in logs.
func (s *OTELSink) Name() string { return "otel" }

// Push records every displayable derived metric of the cycle.
func (s *OTELSink) Push(ctx context.Context, cycle *collector.CycleResult) error {
	for _, g := range cycle.Groups {
		for _, inst := range g.Instances {
			for _, m := range inst.Metrics {
				if m.IsText || !m.Display {
					continue
				}
				gauge, err := s.gauge("filerstat." + g.Group + "." + m.Name)
				if err != nil {
					return err
				}
				gauge.Record(ctx, m.Value, otelmetric.WithAttributes(
					attribute.String("filer", s.host),
					attribute.String("instance", inst.Instance),
				))
			}
		}
	}
	return nil
}

func (s *OTELSink) gauge(name string) (otelmetric.Float64Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.gauges[name]; ok {
		return g, nil
	}
	g, err := s.meter.Float64Gauge(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge %q: %w", name, err)
	}
	s.gauges[name] = g
	s.logger.Debug("registered otel metric", "name", name)
	return g, nil
}

// Start blocks until ctx is cancelled; the periodic reader pushes on its
// own schedule in the background.
func (s *OTELSink) Start(ctx context.Context) error {
	s.logger.Info("starting otel exporter",
		"endpoint", s.cfg.Endpoint,
		"protocol", s.cfg.Protocol,
		"push_interval", s.cfg.Interval,
	)

	<-ctx.Done()
	return s.Stop()
}

// Stop flushes and shuts down the meter provider.
func (s *OTELSink) Stop() error {
	s.logger.Info("shutting down otel exporter")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.meterProvider.Shutdown(ctx)
}
