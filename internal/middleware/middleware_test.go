package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	apierrors "growthcurves/internal/errors"
	"growthcurves/internal/infrastructure"
	"growthcurves/internal/shared/testutil"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func TestRequestID(t *testing.T) {
	t.Run("generates an ID", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
			assert.Equal(t, seen, infrastructure.GetTraceID(r.Context()))
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("reuses the incoming header", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestStructuredLogger(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(http.HandlerFunc(okHandler)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "request completed")
	testutil.AssertLogAttr(t, handler, "status", int64(http.StatusOK))
	testutil.AssertLogAttr(t, handler, "path", "/api/health")
}

func TestRecoverer(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := RequestID(Recoverer(apierrors.NewErrorHandler(logger, false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), apierrors.TypeInternal)
	assert.True(t, handler.ContainsMessage("panic recovered"))
}

func TestRateLimiter(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	rl := NewRateLimiter(0.001, 2, logger, apierrors.NewErrorHandler(logger, false))
	h := rl.Handler(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/fit", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.True(t, handler.ContainsMessage("rate limit exceeded"))
}

func TestBodyLimit(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	v := NewValidator(nil)
	var decodeErr error
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		decodeErr = v.Decode(r, &p)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a long name"}`)))

	var apiErr *apierrors.APIError
	require.ErrorAs(t, decodeErr, &apiErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestOTelMiddleware_RecordsRequests(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewOTelMiddleware(nil, provider.Meter("test"), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "http_requests_total" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), total)
}
