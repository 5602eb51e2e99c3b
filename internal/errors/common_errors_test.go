package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Fatal(t *testing.T) {
	tests := []struct {
		errType ErrorType
		fatal   bool
	}{
		{ErrTypeMissingInput, true},
		{ErrTypeMissingColumn, true},
		{ErrTypeEmptyDataset, true},
		{ErrTypeNoConvergedModel, true},
		{ErrTypeFitConvergence, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.fatal, tt.errType.Fatal())
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewEmptyDataset("z-score trim"),
			expected: "[EMPTY_DATASET] no valid data after z-score trim",
		},
		{
			name:     "with stage",
			err:      NewEmptyDataset("percentile trim").WithStage("clean"),
			expected: "[EMPTY_DATASET@clean] no valid data after percentile trim",
		},
		{
			name:     "with cause",
			err:      NewParsingError("read workbook", fmt.Errorf("bad zip")),
			expected: "[PARSING] read workbook: bad zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestTypeHelpers(t *testing.T) {
	base := NewMissingColumn("observation", "age").WithStage("validate")
	wrapped := fmt.Errorf("unit F/WM/FA: %w", base)

	assert.True(t, IsType(wrapped, ErrTypeMissingColumn))
	assert.False(t, IsType(wrapped, ErrTypeEmptyDataset))
	assert.Equal(t, ErrTypeMissingColumn, TypeOf(wrapped))
	assert.Equal(t, "validate", StageOf(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, ErrTypeInternal, TypeOf(plain))
	assert.Empty(t, StageOf(plain))

	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "age", appErr.Context["column"])
	assert.Equal(t, "observation", appErr.Context["table"])
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("singular system")
	err := NewFitConvergence("BCT/pb", "numerical error", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "numerical error", err.Context["reason"])
	assert.False(t, err.Type.Fatal())
}

func TestNewNoConvergedModel(t *testing.T) {
	err := NewNoConvergedModel(4)
	assert.Equal(t, "[NO_CONVERGED_MODEL] none of 4 candidate models converged", err.Error())
	assert.Equal(t, 4, err.Context["attempted"])
}
