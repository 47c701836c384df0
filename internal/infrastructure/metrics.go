package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ServiceName    = "sentfactor"
	ServiceVersion = "1.0.0"
	MeterName      = "sentfactor"
)

// Metrics holds the pipeline's metric instruments
type Metrics struct {
	provider *sdkmetric.MeterProvider

	StageDuration      metric.Float64Histogram
	PanelRowsBuilt     metric.Int64Counter
	ArticlesScored     metric.Int64Counter
	ResampleIterations metric.Int64Counter

	// PrometheusHTTP serves the scrape endpoint when the caller wants one
	PrometheusHTTP http.Handler
}

// InitializeMetrics creates the OpenTelemetry meter provider with a
// Prometheus exporter and registers the pipeline instruments.
func InitializeMetrics() (*Metrics, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter(MeterName)

	m := &Metrics{
		provider:       provider,
		PrometheusHTTP: promhttp.Handler(),
	}

	m.StageDuration, err = meter.Float64Histogram("pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of each pipeline stage"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create stage duration histogram: %w", err)
	}

	m.PanelRowsBuilt, err = meter.Int64Counter("panel_rows_built_total",
		metric.WithDescription("Panel rows assembled"))
	if err != nil {
		return nil, fmt.Errorf("create panel rows counter: %w", err)
	}

	m.ArticlesScored, err = meter.Int64Counter("articles_scored_total",
		metric.WithDescription("News articles scored for sentiment"))
	if err != nil {
		return nil, fmt.Errorf("create articles counter: %w", err)
	}

	m.ResampleIterations, err = meter.Int64Counter("resample_iterations_total",
		metric.WithDescription("Bootstrap and permutation iterations executed"))
	if err != nil {
		return nil, fmt.Errorf("create resample counter: %w", err)
	}

	return m, nil
}

// RecordStage records a completed stage's duration
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil || m.StageDuration == nil {
		return
	}
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}

// Shutdown flushes the meter provider
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
