package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMissingInput     ErrorType = "MISSING_INPUT"
	ErrTypeMissingColumn    ErrorType = "MISSING_COLUMN"
	ErrTypeEmptyDataset     ErrorType = "EMPTY_DATASET"
	ErrTypeNoConvergedModel ErrorType = "NO_CONVERGED_MODEL"
	ErrTypeFitConvergence   ErrorType = "FIT_CONVERGENCE"
	ErrTypeValidation       ErrorType = "VALIDATION"
	ErrTypeParsing          ErrorType = "PARSING"
	ErrTypeConfig           ErrorType = "CONFIG"
	ErrTypeInternal         ErrorType = "INTERNAL"
)

// Fatal reports whether an error of this type ends the pipeline run for a unit.
func (t ErrorType) Fatal() bool {
	return t != ErrTypeFitConvergence
}

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Stage   string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	prefix := string(e.Type)
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s@%s", e.Type, e.Stage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithStage records the pipeline stage that produced the error
func (e *AppError) WithStage(stage string) *AppError {
	e.Stage = stage
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the type of the first AppError in the chain, or
// ErrTypeInternal when err carries none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeInternal
}

// IsType reports whether err wraps an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// StageOf returns the stage recorded on the first AppError in the chain
func StageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}

// Helper functions for the pipeline error taxonomy

// NewMissingInput creates an error for absent observation data
func NewMissingInput(message string) *AppError {
	return NewAppError(ErrTypeMissingInput, message, nil)
}

// NewMissingColumn creates an error for a column the table does not carry
func NewMissingColumn(table, column string) *AppError {
	return NewAppError(ErrTypeMissingColumn, fmt.Sprintf("column %q not found in %s table", column, table), nil).
		WithContext("table", table).
		WithContext("column", column)
}

// NewEmptyDataset creates an error for a cleaning step that removed every row
func NewEmptyDataset(step string) *AppError {
	return NewAppError(ErrTypeEmptyDataset, fmt.Sprintf("no valid data after %s", step), nil).
		WithContext("step", step)
}

// NewNoConvergedModel creates an error for a grid in which no candidate converged
func NewNoConvergedModel(attempted int) *AppError {
	return NewAppError(ErrTypeNoConvergedModel, fmt.Sprintf("none of %d candidate models converged", attempted), nil).
		WithContext("attempted", attempted)
}

// NewFitConvergence creates the non-fatal per-candidate failure
func NewFitConvergence(candidate, reason string, cause error) *AppError {
	return NewAppError(ErrTypeFitConvergence, fmt.Sprintf("%s did not converge: %s", candidate, reason), cause).
		WithContext("candidate", candidate).
		WithContext("reason", reason)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
