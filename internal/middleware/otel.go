package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"growthcurves/internal/infrastructure"
)

// OTelMiddleware provides OpenTelemetry instrumentation for HTTP requests
type OTelMiddleware struct {
	tracer  trace.Tracer
	metrics *infrastructure.HTTPMetrics
	logger  *slog.Logger
}

// NewOTelMiddleware creates the middleware from tracer and meter
func NewOTelMiddleware(tracer trace.Tracer, meter metric.Meter, logger *slog.Logger) (*OTelMiddleware, error) {
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}
	if logger == nil {
		logger = slog.Default()
	}
	metrics, err := infrastructure.CreateHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &OTelMiddleware{tracer: tracer, metrics: metrics, logger: logger}, nil
}

// Handler returns the middleware handler function
func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
				semconv.UserAgentOriginalKey.String(r.UserAgent()),
				semconv.HTTPRequestBodySizeKey.Int64(r.ContentLength),
			),
		)
		defer span.End()

		if span.SpanContext().IsValid() {
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
		}
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.metrics.ActiveRequests.Add(ctx, 1)
		defer m.metrics.ActiveRequests.Add(ctx, -1)

		start := time.Now()
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		span.SetName(r.Method + " " + route)

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.Int("status_code", status),
		)
		m.metrics.RequestsTotal.Add(ctx, 1, attrs)
		m.metrics.RequestDuration.Record(ctx, duration.Seconds(), attrs)

		span.SetAttributes(
			semconv.HTTPRoute(route),
			semconv.HTTPResponseStatusCode(status),
			semconv.HTTPResponseBodySizeKey.Int64(int64(ww.BytesWritten())),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

// routePattern returns the matched chi route, or the raw path outside a router
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
