// Package errors defines the error surface of the HTTP API: domain
// sentinels for services to return, APIError for handler-level
// failures with machine-readable codes, and RFC 7807 problem documents
// as the wire format. ErrorHandler ties the three together.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is an HTTP-facing error with a stable machine-readable
// code. Handlers build these directly or get them from the
// constructors below; ErrorHandler turns them into problem documents.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render sets the response status for chi render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors carries every rejected field of one request.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New builds an APIError from its three fixed parts.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails builds an APIError carrying structured details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	e := New(statusCode, errorCode, message)
	e.Details = details
	return e
}

// The catalog of fixed API errors. Error codes here are part of the
// API contract; clients switch on them, so changing one is a breaking
// change.
var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrMissingParameter = New(http.StatusBadRequest, "MISSING_PARAMETER", "Required parameter is missing")
	ErrInvalidParameter = New(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value")
	ErrInvalidClusterK  = New(http.StatusBadRequest, "INVALID_CLUSTER_COUNT", "Cluster count out of range")

	ErrNotFound        = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrDatasetNotFound = New(http.StatusNotFound, "DATASET_NOT_FOUND", "Dataset file not found")
	ErrEngineNotFound  = New(http.StatusNotFound, "ENGINE_NOT_FOUND", "Engine not found")

	ErrConflict = New(http.StatusConflict, "CONFLICT", "Resource conflict")

	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrPipelineFailed = New(http.StatusInternalServerError, "PIPELINE_FAILED", "Dataset pipeline run failed")
	ErrClusterFailed  = New(http.StatusInternalServerError, "CLUSTER_FAILED", "Clustering run failed")
	ErrFileSystem     = New(http.StatusInternalServerError, "FILESYSTEM_ERROR", "File system error")

	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
)

// InvalidRequestWithError reports a malformed request with the decode
// failure as detail.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation reports a single rejected field.
func ErrValidation(field, message string) *APIError {
	detail := ValidationError{Field: field, Message: message}
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", detail)
}

// NewValidationErrors reports every rejected field of a request at
// once.
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		ValidationErrors{Errors: errors})
}

// NewValidationError reports a validation failure that is not tied to
// one field.
func NewValidationError(message string) *APIError {
	return New(http.StatusBadRequest, "VALIDATION_FAILED", message)
}

// NotFoundError reports a missing resource by name.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource), resource)
}

// DatasetNotFoundError reports a missing dataset file with the lookup
// failure as detail.
func DatasetNotFoundError(err error) *APIError {
	return NewWithDetails(http.StatusNotFound, "DATASET_NOT_FOUND", "Dataset file not found", err.Error())
}

// InvalidClusterCountError reports a cluster count outside [minK, maxK].
func InvalidClusterCountError(k, minK, maxK int) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"INVALID_CLUSTER_COUNT",
		fmt.Sprintf("Cluster count must be between %d and %d, got %d", minK, maxK, k),
		map[string]int{"requested_k": k, "min_k": minK, "max_k": maxK},
	)
}

// ErrPipelineExecution reports a failed cleaning pipeline run.
func ErrPipelineExecution(err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "PIPELINE_EXECUTION_FAILED", "Dataset pipeline run failed", err.Error())
}

// ClusterExecutionError reports a failed clustering run.
func ClusterExecutionError(err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "CLUSTER_EXECUTION_FAILED", "Clustering run failed", err.Error())
}

// FileSystemError reports a filesystem failure during the named
// operation.
func FileSystemError(operation string, err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "FILESYSTEM_ERROR",
		fmt.Sprintf("File system error during %s", operation), err.Error())
}

// NewInternalError reports an internal failure with a custom message.
func NewInternalError(message string) *APIError {
	return New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message)
}

// PanicRecovery carries what a recovered panic said.
type PanicRecovery struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ErrPanic wraps a recovered panic value as an internal error.
func ErrPanic(rec interface{}) *APIError {
	return NewWithDetails(
		http.StatusInternalServerError,
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		PanicRecovery{Message: fmt.Sprintf("%v", rec)},
	)
}

// ErrorResponse is the success-flag envelope used by the few endpoints
// that write errors without going through the problem-details path.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse wraps an APIError in the response envelope.
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{Success: false, Error: err}
}

// Render sets the response status from the wrapped error.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}

// WriteError writes an enveloped error directly, for handlers that
// respond before the render stack is involved.
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(NewErrorResponse(err))
}
