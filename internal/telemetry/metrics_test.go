package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()
	require.Same(t, m, GetMetrics())

	require.NotNil(t, m.BuildsTotal)
	require.NotNil(t, m.BuildErrorsTotal)
	require.NotNil(t, m.BuildDuration)
	require.NotNil(t, m.StageDuration)
	require.NotNil(t, m.OutputBytes)
	require.NotNil(t, m.MinifyCacheHits)
	require.NotNil(t, m.RequestsTotal)

	// recording without an installed provider is a no-op
	ctx := context.Background()
	m.BuildsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", "production")))
	m.StageDuration.Record(ctx, 12, metric.WithAttributes(attribute.String("stage", "emit")))
}
