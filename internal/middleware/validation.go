package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	apierrors "engineatlas/internal/errors"
)

// Request bodies above this size are rejected outright. The API only
// ever receives small JSON documents (filter sets, log batches), so
// anything larger is a mistake or abuse.
const maxRequestBodySize = 10 * 1024 * 1024

// ValidationMiddleware vets request bodies and validates request
// structs against their validate tags. The "column_name" and
// "filename" tags cover the two string shapes this API accepts from
// clients: canonical dataset columns and export file names.
type ValidationMiddleware struct {
	validator    *validator.Validate
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
	maxBodySize  int64
}

// NewValidationMiddleware builds the validator with the API's custom
// tags registered and error messages keyed by json field names.
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New()
	v.RegisterValidation("column_name", isValidColumnName)
	v.RegisterValidation("filename", isValidFilename)

	// Report errors under the json name, so "year_max" not "YearMax".
	v.RegisterTagNameFunc(jsonTagName)

	return &ValidationMiddleware{
		validator:    v,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		maxBodySize:  maxRequestBodySize,
	}
}

// jsonTagName resolves a struct field to its json name. Fields opting
// out of serialization report no name at all.
func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// ValidateRequest rejects oversized and syntactically broken JSON
// bodies before a handler sees them, then restores the body for the
// handler to decode. Read-only methods pass straight through.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if r.Body == nil || r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		// MaxBytesReader enforces the cap even for chunked bodies,
		// where ContentLength is -1.
		r.Body = http.MaxBytesReader(w, r.Body, m.maxBodySize)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			m.logger.WarnContext(r.Context(), "request body rejected",
				slog.String("error", err.Error()),
				slog.String("request_id", chimw.GetReqID(r.Context())))
			var tooBig *http.MaxBytesError
			if !errors.As(err, &tooBig) {
				err = apierrors.InvalidRequestWithError(err)
			}
			m.errorHandler.HandleError(w, r, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if len(body) > 0 && !json.Valid(body) {
			m.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest,
				"INVALID_JSON", "Request body is not valid JSON"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateStruct runs tag validation over v and collects every failure
// into one VALIDATION_FAILED error, so a client sees all problems with
// a request at once.
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	failures := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failures = append(failures, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return apierrors.NewValidationErrors(failures)
}

// validationMessage renders one field failure as a sentence a client
// can show directly.
func validationMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "column_name":
		return fmt.Sprintf("%s must be a snake_case column name", field)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// isValidColumnName accepts canonical dataset column names: lowercase
// snake_case, no leading digit. Trailing underscores survive header
// normalization, so they are legal here too.
func isValidColumnName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 64 {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '_':
		default:
			return false
		}
	}
	return true
}

// isValidFilename accepts plain file names for exports. Anything that
// could walk out of the exports directory is rejected.
func isValidFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 255 {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// ContentType rejects write requests whose declared content type is
// outside the allowed list. Bodyless requests and read-only methods
// pass through.
func (m *ValidationMiddleware) ContentType(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodDelete:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ct := r.Header.Get("Content-Type")
			if ct == "" {
				m.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest,
					"MISSING_CONTENT_TYPE", "Content-Type header is required"))
				return
			}
			for _, a := range allowed {
				if strings.HasPrefix(ct, a) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{"content_type": ct, "allowed": allowed}))
		})
	}
}
