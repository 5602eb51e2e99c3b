package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
	TypeMissingInput     = "/errors/data/missing-input"
	TypeMissingColumn    = "/errors/data/missing-column"
	TypeEmptyDataset     = "/errors/data/empty"
	TypeNoConvergedModel = "/errors/model/no-converged-model"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return h.appErrorToProblem(appErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// appErrorToProblem maps the pipeline taxonomy onto HTTP statuses
func (h *ErrorHandler) appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	status := http.StatusInternalServerError
	problemType := TypeInternal
	title := "Internal Server Error"

	switch appErr.Type {
	case ErrTypeValidation, ErrTypeParsing:
		status, problemType, title = http.StatusBadRequest, TypeValidation, "Validation Failed"
	case ErrTypeMissingInput:
		status, problemType, title = http.StatusUnprocessableEntity, TypeMissingInput, "Missing Input"
	case ErrTypeMissingColumn:
		status, problemType, title = http.StatusUnprocessableEntity, TypeMissingColumn, "Missing Column"
	case ErrTypeEmptyDataset:
		status, problemType, title = http.StatusUnprocessableEntity, TypeEmptyDataset, "Empty Dataset"
	case ErrTypeNoConvergedModel:
		status, problemType, title = http.StatusUnprocessableEntity, TypeNoConvergedModel, "No Converged Model"
	}

	detail := appErr.Message
	if status == http.StatusInternalServerError {
		detail = "An unexpected error occurred while processing your request"
	}

	problem := NewProblemDetails(status, problemType, title, detail, r.URL.Path).
		WithExtension("error_code", string(appErr.Type))
	if appErr.Stage != "" {
		problem.WithExtension("stage", appErr.Stage)
	}
	return problem
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := h.apiErrorToProblem(ErrPanic, r).WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := h.apiErrorToProblem(ErrNotFound, r).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
