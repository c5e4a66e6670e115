package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/uibundle"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram
	StageDuration    metric.Float64Histogram

	// Output metrics
	OutputBytes     metric.Int64Counter
	MinifyCacheHits metric.Int64Counter

	// Dev server metrics
	RequestsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments come from the global meter provider, which is a no-op until
// InitTelemetry installs an exporter.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"uibundle.builds.total",
		metric.WithDescription("Total number of successful builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"uibundle.builds.errors.total",
		metric.WithDescription("Total number of failed builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"uibundle.build.duration",
		metric.WithDescription("Duration of complete builds"),
		metric.WithUnit("ms"),
	)

	m.StageDuration, _ = meter.Float64Histogram(
		"uibundle.stage.duration",
		metric.WithDescription("Duration of individual build stages"),
		metric.WithUnit("ms"),
	)

	m.OutputBytes, _ = meter.Int64Counter(
		"uibundle.output.bytes",
		metric.WithDescription("Total bytes written to the output directory"),
		metric.WithUnit("By"),
	)

	m.MinifyCacheHits, _ = meter.Int64Counter(
		"uibundle.minify.cache_hits.total",
		metric.WithDescription("Total number of minified outputs served from cache"),
		metric.WithUnit("{file}"),
	)

	m.RequestsTotal, _ = meter.Int64Counter(
		"uibundle.devserver.requests.total",
		metric.WithDescription("Total number of dev server requests"),
		metric.WithUnit("{request}"),
	)

	return m
}
