package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthcurves/internal/config"
	"growthcurves/internal/shared/testutil"
	api "growthcurves/pkg/contracts/api/v1"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Telemetry.EnableMetrics = false
	cfg.Telemetry.EnableTracing = false
	cfg.Pipeline.Workers = 2
	return cfg
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(context.Background(), testConfig(), logger)
	require.NoError(t, err)
	return a
}

func ptrs(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

func postFit(t *testing.T, a *Application, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fit", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFitEndpoint(t *testing.T) {
	a := newTestApp(t)
	c := testutil.NormalCohort(120, 7)

	values := ptrs(c.Value)
	values[3] = nil

	rec := postFit(t, a, api.FitRequest{
		Sex:       "F",
		Tissue:    "WM",
		Biomarker: "FA",
		Age:       ptrs(c.Age),
		Values:    values,
		Disease: &api.Disease{
			Age:    ptrs([]float64{5, 9}),
			Values: ptrs([]float64{20, 14}),
			Tissue: []string{"WM", "GM"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.FitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, api.Unit{Sex: "F", Tissue: "WM", Biomarker: "FA"}, resp.Unit)
	assert.Equal(t, "fixed", resp.Mode)
	assert.NotEmpty(t, resp.Family)
	assert.Equal(t, []float64{3, 15, 50, 85, 97}, resp.Levels)
	require.NotEmpty(t, resp.Centiles)
	for _, pt := range resp.Centiles {
		require.Len(t, pt.Values, 5)
		assert.Less(t, pt.Values[0], pt.Values[4])
	}
	assert.LessOrEqual(t, resp.Rows, 119)
	require.Len(t, resp.Disease, 1)
	assert.Equal(t, "WM", resp.Disease[0].Tissue)
	assert.Greater(t, resp.Disease[0].Percentile, 90.0)
}

func TestFitEndpoint_Errors(t *testing.T) {
	a := newTestApp(t)
	c := testutil.NormalCohort(60, 8)

	t.Run("validation", func(t *testing.T) {
		rec := postFit(t, a, api.FitRequest{Tissue: "WM", Biomarker: "FA", Age: ptrs(c.Age), Values: ptrs(c.Value[:10])})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "sex")
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fit", bytes.NewReader([]byte(`{"sex":"F","colour":"red"}`)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fit", bytes.NewReader([]byte(`sex=F`)))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("no converged model", func(t *testing.T) {
		flat := make([]float64, len(c.Age))
		for i := range flat {
			flat[i] = 0.45
		}
		rec := postFit(t, a, api.FitRequest{Sex: "F", Tissue: "WM", Biomarker: "FA", Age: ptrs(c.Age), Values: ptrs(flat)})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "no-converged-model")
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/fit", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error_code":"NOT_FOUND"`)
	})
}
