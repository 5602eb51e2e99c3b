package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"growthcurves/internal/config"
)

const (
	// MeterName is the instrumentation scope for tracers and meters
	MeterName = "growthcurves"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics according to cfg and installs
// the providers globally.
func InitializeOTel(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}

	logger.InfoContext(ctx, "initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  otel.Meter(MeterName),
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func initializeTracing(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

func initializeMetrics(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// FitMetrics holds the instruments recorded by the fitting pipeline
type FitMetrics struct {
	FitsTotal    metric.Int64Counter
	FitDuration  metric.Float64Histogram
	UnitsTotal   metric.Int64Counter
	RowsRetained metric.Int64Histogram
	SelectedAIC  metric.Float64Histogram
}

// CreateFitMetrics registers the pipeline instruments on meter
func CreateFitMetrics(meter metric.Meter) (*FitMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	fitsTotal, err := meter.Int64Counter(
		"growth_fits_total",
		metric.WithDescription("Candidate model fits attempted"),
		metric.WithUnit("{fit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fits counter: %w", err)
	}

	fitDuration, err := meter.Float64Histogram(
		"growth_fit_duration_seconds",
		metric.WithDescription("Wall time of one candidate fit"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fit duration histogram: %w", err)
	}

	unitsTotal, err := meter.Int64Counter(
		"growth_units_total",
		metric.WithDescription("Pipeline units processed by outcome"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create units counter: %w", err)
	}

	rowsRetained, err := meter.Int64Histogram(
		"growth_rows_retained",
		metric.WithDescription("Observations retained after cleaning"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows histogram: %w", err)
	}

	selectedAIC, err := meter.Float64Histogram(
		"growth_selected_aic",
		metric.WithDescription("AIC of the selected model per unit"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aic histogram: %w", err)
	}

	return &FitMetrics{
		FitsTotal:    fitsTotal,
		FitDuration:  fitDuration,
		UnitsTotal:   unitsTotal,
		RowsRetained: rowsRetained,
		SelectedAIC:  selectedAIC,
	}, nil
}

// HTTPMetrics holds the instruments recorded by the HTTP middleware
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ActiveRequests  metric.Int64UpDownCounter
}

// CreateHTTPMetrics registers the HTTP server instruments on meter
func CreateHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	return &HTTPMetrics{
		RequestsTotal:   requestsTotal,
		RequestDuration: requestDuration,
		ActiveRequests:  activeRequests,
	}, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the OTel trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
