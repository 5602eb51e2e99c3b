package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"growthcurves/internal/config"
)

func TestInitializeOTel_Disabled(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.EnableTracing = false
	cfg.EnableMetrics = false

	providers, err := InitializeOTel(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.EnableMetrics = true
	cfg.MetricExporter = "otlp"

	_, err := InitializeOTel(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestFitMetrics_PrometheusEndpoint(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.EnableTracing = false
	cfg.EnableMetrics = true
	cfg.MetricExporter = "prometheus"

	ctx := context.Background()
	providers, err := InitializeOTel(ctx, cfg, nil)
	require.NoError(t, err)
	defer providers.Shutdown(ctx)

	fm, err := CreateFitMetrics(providers.Meter)
	require.NoError(t, err)
	fm.FitsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("family", "BCCG"),
		attribute.Bool("converged", true),
	))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "growth_fits_total")
}

func TestCreateFitMetrics_NilMeter(t *testing.T) {
	fm, err := CreateFitMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, fm.UnitsTotal)
}
