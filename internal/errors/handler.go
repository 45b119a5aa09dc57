package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"engineatlas/internal/infrastructure"
)

// Problem type URIs, ordered by status code. They identify the failure
// class in RFC 7807 responses and double as documentation anchors.
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
	TypeConflict         = "/errors/conflict"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
)

// Problem types for the dataset, cluster and image domains.
const (
	TypeDatasetMissing   = "/errors/dataset/not-found"
	TypeDatasetEmpty     = "/errors/dataset/empty"
	TypeDatasetNotLoaded = "/errors/dataset/not-loaded"
	TypeEngineNotFound   = "/errors/engine/not-found"
	TypeClusterCount     = "/errors/cluster/invalid-count"
	TypeClusterRows      = "/errors/cluster/too-few-rows"
	TypeImageNotFound    = "/errors/image/not-found"
	TypeImageDisabled    = "/errors/image/disabled"
)

// sentinelProblems maps each domain sentinel onto its problem
// document. ErrorToProblem walks this list in order, so more specific
// sentinels go first.
var sentinelProblems = []struct {
	err    error
	status int
	ptype  string
	title  string
	detail string
}{
	{ErrDatasetMissing, http.StatusNotFound, TypeDatasetMissing,
		"Dataset Not Found", "No dataset file was found. Place a CSV file in the data directory and reload."},
	{ErrDatasetEmpty, http.StatusUnprocessableEntity, TypeDatasetEmpty,
		"Dataset Empty", "The dataset file was loaded but contains no data rows."},
	{ErrDatasetNotLoaded, http.StatusServiceUnavailable, TypeDatasetNotLoaded,
		"Dataset Not Loaded", "The dataset has not been loaded yet. Trigger a reload and try again."},
	{ErrEngineMissing, http.StatusNotFound, TypeEngineNotFound,
		"Engine Not Found", "No engine matches the requested identifier."},
	{ErrClusterCountRange, http.StatusBadRequest, TypeClusterCount,
		"Invalid Cluster Count", "The requested cluster count is outside the allowed range."},
	{ErrTooFewCompleteRows, http.StatusUnprocessableEntity, TypeClusterRows,
		"Not Enough Complete Rows", "There are fewer complete rows than requested clusters."},
	{ErrImageNotFound, http.StatusNotFound, TypeImageNotFound,
		"Image Not Found", "No image could be found for the requested engine."},
	{ErrImageLookupDisabled, http.StatusServiceUnavailable, TypeImageDisabled,
		"Image Lookup Disabled", "Image lookups are disabled in the server configuration."},
}

// errorCodeTypes maps APIError codes onto problem type URIs. Codes
// not listed here surface as TypeInternal.
var errorCodeTypes = map[string]string{
	"VALIDATION_FAILED":      TypeValidation,
	"INVALID_REQUEST":        TypeValidation,
	"INVALID_JSON":           TypeValidation,
	"MISSING_PARAMETER":      TypeValidation,
	"INVALID_PARAMETER":      TypeValidation,
	"MISSING_CONTENT_TYPE":   TypeValidation,
	"UNSUPPORTED_MEDIA_TYPE": TypeValidation,
	"NOT_FOUND":              TypeNotFound,
	"DATASET_NOT_FOUND":      TypeDatasetMissing,
	"ENGINE_NOT_FOUND":       TypeEngineNotFound,
	"INVALID_CLUSTER_COUNT":  TypeClusterCount,
	"CONFLICT":               TypeConflict,
	"RELOAD_IN_PROGRESS":     TypeConflict,
	"SERVICE_UNAVAILABLE":    TypeServiceDown,
	"PAYLOAD_TOO_LARGE":      TypePayloadTooLarge,
}

// ErrorHandler converts errors into RFC 7807 responses. With
// includeStack set it attaches stack traces, which is only acceptable
// in development.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates an error handler writing through the given
// logger.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError classifies err, logs it together with the status it
// mapped to, and answers with the problem document. A nil err writes
// nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	problem := h.ErrorToProblem(err, r)
	reqID := middleware.GetReqID(r.Context())
	problem.WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", reqID),
	)
	infrastructure.RecordError(r.Context(), err)

	render.Render(w, r, problem)
}

// ErrorToProblem classifies err into a problem document. Typed errors
// come first, then the domain sentinels, and last a couple of message
// shapes from layers that never typed their failures.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timed Out",
			"The request was cancelled before it could finish",
			r.URL.Path,
		)
	}

	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return NewProblemDetails(http.StatusRequestEntityTooLarge, TypePayloadTooLarge,
			"Payload Too Large",
			fmt.Sprintf("The request body may not exceed %d bytes", tooBig.Limit),
			r.URL.Path)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	for _, sp := range sentinelProblems {
		if errors.Is(err, sp.err) {
			return NewProblemDetails(sp.status, sp.ptype, sp.title, sp.detail, r.URL.Path)
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound,
			"Resource Not Found", msg, r.URL.Path)

	case strings.Contains(msg, "conflict"):
		return NewProblemDetails(http.StatusConflict, TypeConflict,
			"Conflict", msg, r.URL.Path)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing the request",
		r.URL.Path,
	)
}

// apiErrorToProblem lifts an APIError into a problem document,
// carrying its code and details as extensions.
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType, ok := errorCodeTypes[apiErr.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}

	problem := NewProblemDetails(apiErr.StatusCode, problemType,
		http.StatusText(apiErr.StatusCode), apiErr.Message, r.URL.Path)
	problem.WithExtension("error_code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic logs a recovered panic with its stack and answers 500.
// The panic value itself only reaches the client when includeStack is
// set.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", reqID),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal,
		"Internal Server Error",
		"The server hit an unexpected condition while handling the request", r.URL.Path)
	problem.WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprint(recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound answers unmatched routes with a problem document instead of
// the router's plain-text default.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound,
		"Not Found", "No route matches the requested path", r.URL.Path)
	problem.WithExtension("trace_id", middleware.GetReqID(r.Context()))
	render.Render(w, r, problem)
}

// MethodNotAllowed answers method mismatches on known routes.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusMethodNotAllowed, TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("%s is not supported on this endpoint", r.Method), r.URL.Path)
	problem.WithExtension("trace_id", middleware.GetReqID(r.Context()))
	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
