package services

import (
	"context"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricApi "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsService exports API and generation metrics in the Prometheus format.
// Every instance owns its registry so more than one can live in a process.
type MetricsService struct {
	Meter              metric.Meter
	ApiTimeMetric      metric.Float64Histogram
	GenerationMetric   metric.Float64Histogram
	GenerationFailures metric.Int64Counter

	registry *prom.Registry
	provider *metricApi.MeterProvider
}

// NewMetricsService bootstraps the OpenTelemetry pipeline for Prometheus export.
// If it does not return an error, make sure to call Shutdown for proper cleanup.
func NewMetricsService() (*MetricsService, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	provider := metricApi.NewMeterProvider(metricApi.WithReader(exporter))
	meter := provider.Meter("github.com/mudler/LocalDiffusion")

	apiTimeMetric, err := meter.Float64Histogram("api_call", metric.WithDescription("api calls"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	generationMetric, err := meter.Float64Histogram("image_generation", metric.WithDescription("time spent generating images"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("image_generation_failures", metric.WithDescription("failed image generations"))
	if err != nil {
		return nil, err
	}

	return &MetricsService{
		Meter:              meter,
		ApiTimeMetric:      apiTimeMetric,
		GenerationMetric:   generationMetric,
		GenerationFailures: failures,
		registry:           registry,
		provider:           provider,
	}, nil
}

func (m *MetricsService) ObserveAPICall(method string, path string, duration float64) {
	opts := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	)
	m.ApiTimeMetric.Record(context.Background(), duration, opts)
}

func (m *MetricsService) ObserveGeneration(kind string, duration float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		m.GenerationFailures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
	m.GenerationMetric.Record(context.Background(), duration, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

// Handler serves the metrics collected by this service.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsService) Shutdown() error {
	return m.provider.Shutdown(context.Background())
}
