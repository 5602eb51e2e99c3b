package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"missing column", NewMissingColumn("observation", "age"), http.StatusUnprocessableEntity, TypeMissingColumn},
		{"missing input", NewMissingInput("observation data is required"), http.StatusUnprocessableEntity, TypeMissingInput},
		{"empty dataset", fmt.Errorf("clean: %w", NewEmptyDataset("z-score trim")), http.StatusUnprocessableEntity, TypeEmptyDataset},
		{"no converged model", NewNoConvergedModel(4), http.StatusUnprocessableEntity, TypeNoConvergedModel},
		{"validation", NewAppValidationError("mode must be fixed or search"), http.StatusBadRequest, TypeValidation},
		{"api error", ErrRateLimitExceeded, http.StatusTooManyRequests, TypeRateLimit},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	h := NewErrorHandler(nil, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/fit", nil)
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/fit", body["instance"])
			assert.Contains(t, body, "trace_id")
		})
	}
}

func TestErrorHandler_StageExtension(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fit", nil)

	problem := h.ErrorToProblem(NewEmptyDataset("NA removal").WithStage("clean"), req)

	assert.Equal(t, "clean", problem.Extensions["stage"])
	assert.Equal(t, "EMPTY_DATASET", problem.Extensions["error_code"])
	assert.Equal(t, "no valid data after NA removal", problem.Detail)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "", "/x").
		WithExtension("field", "mode")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "mode", body["field"])
	assert.Equal(t, float64(400), body["status"])
	assert.NotContains(t, body, "detail")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	h := NewErrorHandler(nil, true)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, req, "kaboom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "kaboom", body["panic"])
	assert.Equal(t, ErrPanic.ErrorCode, body["error_code"])
}

func TestErrorHandler_HandlePanicHidesValue(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fit", nil)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, req, "secret state")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret state")
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeInternal, body["type"])
	assert.Equal(t, ErrPanic.Message, body["detail"])
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["error_code"])
}

func TestErrorHandler_NotFound(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/api/v2/fit", nil)
	rec := httptest.NewRecorder()

	h.NotFound(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, ErrNotFound.Message, body["detail"])
	assert.Equal(t, "NOT_FOUND", body["error_code"])
	assert.Equal(t, "/api/v2/fit", body["instance"])
}
