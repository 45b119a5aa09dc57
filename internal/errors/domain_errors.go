package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Dataset, clustering and image lookup errors (using errors package for sentinel errors)
var (
	ErrDatasetMissing   = errors.New("dataset file not found")
	ErrDatasetEmpty     = errors.New("dataset has no rows")
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	ErrEngineMissing    = errors.New("engine not found")

	ErrClusterCountRange  = errors.New("cluster count out of range")
	ErrTooFewCompleteRows = errors.New("not enough complete rows for clustering")

	ErrImageNotFound       = errors.New("no image found")
	ErrImageLookupDisabled = errors.New("image lookup disabled")
)

// DatasetDetails provides additional context for dataset errors
type DatasetDetails struct {
	Path       string     `json:"path,omitempty"`
	SearchedIn string     `json:"searched_in,omitempty"`
	Rows       int        `json:"rows,omitempty"`
	Columns    int        `json:"columns,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
}

// ClusterRunDetails provides additional context for clustering errors
type ClusterRunDetails struct {
	RequestedK   int `json:"requested_k,omitempty"`
	MinK         int `json:"min_k,omitempty"`
	MaxK         int `json:"max_k,omitempty"`
	CompleteRows int `json:"complete_rows,omitempty"`
}

// NewDatasetMissingError creates an enhanced error for a missing dataset file
func NewDatasetMissingError(details *DatasetDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeDatasetMissing,
		"Dataset Not Found",
		"No dataset file was found. Place a CSV file in the data directory and reload.",
		fmt.Sprintf("/api/dataset#trace-%s", traceID),
	)

	problem.WithExtension("error_code", "DATASET_NOT_FOUND").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.Path != "" {
			problem.WithExtension("expected_path", details.Path)
		}
		if details.SearchedIn != "" {
			problem.WithExtension("searched_in", details.SearchedIn)
		}
	}

	return problem
}

// NewDatasetEmptyError creates an error for a dataset file with no usable rows
func NewDatasetEmptyError(details *DatasetDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		TypeDatasetEmpty,
		"Dataset Empty",
		"The dataset file was loaded but contains no data rows.",
		fmt.Sprintf("/api/dataset#trace-%s", traceID),
	)

	problem.WithExtension("error_code", "DATASET_EMPTY").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.Path != "" {
			problem.WithExtension("path", details.Path)
		}
		if details.Columns > 0 {
			problem.WithExtension("columns", details.Columns)
		}
		if details.LoadedAt != nil {
			problem.WithExtension("loaded_at", details.LoadedAt.Format(time.RFC3339))
		}
	}

	return problem
}

// NewInvalidClusterCountError creates an error for a cluster count outside the configured range
func NewInvalidClusterCountError(details *ClusterRunDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusBadRequest,
		TypeClusterCount,
		"Invalid Cluster Count",
		"The requested cluster count is outside the allowed range.",
		fmt.Sprintf("/api/clusters#trace-%s", traceID),
	)

	problem.WithExtension("error_code", "INVALID_CLUSTER_COUNT").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.RequestedK != 0 {
			problem.WithExtension("requested_k", details.RequestedK)
		}
		if details.MinK > 0 {
			problem.WithExtension("min_k", details.MinK)
		}
		if details.MaxK > 0 {
			problem.WithExtension("max_k", details.MaxK)
		}
	}

	return problem
}

// NewTooFewRowsError creates an error for clustering requests that exceed the usable rows
func NewTooFewRowsError(details *ClusterRunDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		TypeClusterRows,
		"Not Enough Complete Rows",
		"There are fewer complete rows than requested clusters. Lower the cluster count or load a richer dataset.",
		fmt.Sprintf("/api/clusters#trace-%s", traceID),
	)

	problem.WithExtension("error_code", "TOO_FEW_COMPLETE_ROWS").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.RequestedK > 0 {
			problem.WithExtension("requested_k", details.RequestedK)
		}
		problem.WithExtension("complete_rows", details.CompleteRows)
	}

	return problem
}

// MapDatasetError maps dataset domain errors to HTTP problem details
func MapDatasetError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/dataset#trace-%s", traceID)

	// Check if it's an APIError from errors.go
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == "DATASET_NOT_FOUND" {
			return NewDatasetMissingError(nil, traceID)
		}
	}

	switch {
	case errors.Is(err, ErrDatasetMissing):
		return NewDatasetMissingError(nil, traceID)

	case errors.Is(err, ErrDatasetEmpty):
		return NewDatasetEmptyError(nil, traceID)

	case errors.Is(err, ErrDatasetNotLoaded):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeDatasetNotLoaded,
			"Dataset Not Loaded",
			"The dataset has not been loaded yet. Trigger a reload and try again.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "DATASET_NOT_LOADED")

	case errors.Is(err, ErrEngineMissing):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeEngineNotFound,
			"Engine Not Found",
			"No engine matches the requested identifier.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "ENGINE_NOT_FOUND")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}

// MapClusterError maps clustering domain errors to HTTP problem details.
// Errors that are really dataset state problems fall through to MapDatasetError.
func MapClusterError(err error, traceID string) render.Renderer {
	switch {
	case errors.Is(err, ErrClusterCountRange):
		return NewInvalidClusterCountError(nil, traceID)

	case errors.Is(err, ErrTooFewCompleteRows):
		return NewTooFewRowsError(nil, traceID)

	default:
		return MapDatasetError(err, traceID)
	}
}

// MapImageError maps image lookup errors to HTTP problem details
func MapImageError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/images#trace-%s", traceID)

	switch {
	case errors.Is(err, ErrImageNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeImageNotFound,
			"Image Not Found",
			"No image could be found for the requested engine.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "IMAGE_NOT_FOUND")

	case errors.Is(err, ErrImageLookupDisabled):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeImageDisabled,
			"Image Lookup Disabled",
			"Image lookups are disabled in the server configuration.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "IMAGE_LOOKUP_DISABLED")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
