package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engineatlas/internal/shared/testutil"
)

func TestNewErrorHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	h := NewErrorHandler(logger, true)

	require.NotNil(t, h)
	assert.True(t, h.includeStack)
	assert.NotNil(t, h.logger)
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name: "nil error writes nothing",
			err:  nil,
		},
		{
			name:       "api error",
			err:        ErrDatasetNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeDatasetMissing,
		},
		{
			name:       "cluster sentinel",
			err:        fmt.Errorf("compute: %w", ErrClusterCountRange),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeClusterCount,
		},
		{
			name:       "generic error",
			err:        errors.New("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/dataset", nil)

			handler.HandleError(w, r, tt.err)

			if tt.err == nil {
				assert.Empty(t, w.Body.String())
				return
			}

			assert.Equal(t, tt.wantStatus, w.Code)

			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
			assert.Equal(t, tt.wantType, decoded["type"])
			assert.Contains(t, decoded, "trace_id")
			assert.NotContains(t, decoded, "stack")
		})
	}
}

func TestErrorHandler_HandleError_IncludesStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/dataset", nil)

	handler.HandleError(w, r, errors.New("boom"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	stack, ok := decoded["stack"].(string)
	require.True(t, ok)
	assert.Contains(t, stack, "goroutine")
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "context canceled",
			err:        fmt.Errorf("clustering: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "dataset missing sentinel",
			err:        ErrDatasetMissing,
			wantStatus: http.StatusNotFound,
			wantType:   TypeDatasetMissing,
		},
		{
			name:       "dataset not loaded sentinel",
			err:        ErrDatasetNotLoaded,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDatasetNotLoaded,
		},
		{
			name:       "cluster count sentinel",
			err:        ErrClusterCountRange,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeClusterCount,
		},
		{
			name:       "too few rows sentinel",
			err:        ErrTooFewCompleteRows,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeClusterRows,
		},
		{
			name:       "not found by message",
			err:        errors.New("column engine_hp not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "conflict by message",
			err:        errors.New("cache write conflict"),
			wantStatus: http.StatusConflict,
			wantType:   TypeConflict,
		},
		{
			name:       "body limit error",
			err:        fmt.Errorf("decode request: %w", &http.MaxBytesError{Limit: 4096}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
		{
			name:       "generic fallback",
			err:        errors.New("mysterious failure"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/clusters", nil)

			problem := handler.ErrorToProblem(tt.err, r)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/clusters", problem.Instance)
		})
	}
}

func TestErrorHandler_apiErrorToProblem(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	tests := []struct {
		name     string
		apiErr   *APIError
		wantType string
	}{
		{"validation", ErrValidationFailed, TypeValidation},
		{"not found", ErrNotFound, TypeNotFound},
		{"dataset not found", ErrDatasetNotFound, TypeDatasetMissing},
		{"engine not found", ErrEngineNotFound, TypeEngineNotFound},
		{"invalid cluster count", ErrInvalidClusterK, TypeClusterCount},
		{"conflict", ErrConflict, TypeConflict},
		{"reload in progress", New(http.StatusConflict, "RELOAD_IN_PROGRESS", "A dataset reload is already running"), TypeConflict},
		{"service unavailable", ErrServiceUnavailable, TypeServiceDown},
		{"payload too large", New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body exceeds maximum allowed size"), TypePayloadTooLarge},
		{"unmapped code", ErrPipelineFailed, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/dataset", nil)

			problem := handler.apiErrorToProblem(tt.apiErr, r)

			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.apiErr.StatusCode, problem.Status)
			assert.Equal(t, tt.apiErr.ErrorCode, problem.Extensions["error_code"])
		})
	}

	t.Run("details carried into extensions", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/clusters", nil)
		apiErr := InvalidClusterCountError(15, 2, 10)

		problem := handler.apiErrorToProblem(apiErr, r)

		assert.Equal(t, apiErr.Details, problem.Extensions["details"])
	})
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	tests := []struct {
		name         string
		includeStack bool
	}{
		{"without stack", false},
		{"with stack", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, tt.includeStack)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/dataset", nil)

			handler.HandlePanic(w, r, "unexpected nil")

			assert.Equal(t, http.StatusInternalServerError, w.Code)

			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
			assert.Equal(t, TypeInternal, decoded["type"])

			if tt.includeStack {
				assert.Equal(t, "unexpected nil", decoded["panic"])
				assert.Contains(t, decoded, "stack")
			} else {
				assert.NotContains(t, decoded, "panic")
			}

			assert.True(t, logs.ContainsMessage("panic recovered"))
		})
	}
}

func TestErrorHandler_NotFound(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/missing", nil)

	handler.NotFound(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, TypeNotFound, decoded["type"])
	assert.Equal(t, "/api/missing", decoded["instance"])
}

func TestErrorHandler_MethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/dataset", nil)

	handler.MethodNotAllowed(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	detail, _ := decoded["detail"].(string)
	assert.Contains(t, detail, "DELETE")
}

func TestGetStackTrace(t *testing.T) {
	stack := getStackTrace()

	assert.Contains(t, stack, "goroutine")
	assert.True(t, strings.Contains(stack, "getStackTrace") || strings.Contains(stack, "handler"))
}
