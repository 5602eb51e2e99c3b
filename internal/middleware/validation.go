package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "growthcurves/internal/errors"
)

// Validator decodes JSON request bodies and validates them with struct tags
type Validator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{
		validator: v,
		logger:    logger.With(slog.String("component", "validation")),
	}
}

// Decode reads the JSON body of r into dst and validates it
func (v *Validator) Decode(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apierrors.New(http.StatusBadRequest, "INVALID_REQUEST", "Request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apierrors.New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body exceeds maximum allowed size")
		case errors.Is(err, io.EOF):
			return apierrors.New(http.StatusBadRequest, "INVALID_REQUEST", "Request body is required")
		default:
			v.logger.DebugContext(r.Context(), "invalid request body",
				slog.String("error", err.Error()),
				slog.String("request_id", GetRequestID(r.Context())))
			return apierrors.InvalidRequestWithError(err)
		}
	}
	return v.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apierrors.InvalidRequestWithError(err)
	}
	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ContentTypeValidator ensures requests with a body declare an allowed content type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			render.Status(r, http.StatusUnsupportedMediaType)
			render.JSON(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "eqfield":
		return fmt.Sprintf("%s must equal %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
