package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "engineatlas/internal/errors"
	customMiddleware "engineatlas/internal/middleware"
	"engineatlas/internal/services"
	apiv1 "engineatlas/pkg/contracts/api/v1"
)

// DatasetHandler handles dataset-related HTTP requests with RFC 7807
// compliance.
type DatasetHandler struct {
	service      DatasetServiceInterface
	validation   *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler with RFC 7807 error handling
func NewDatasetHandler(service DatasetServiceInterface, validation *customMiddleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes with proper Chi patterns
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetInfo)
	r.Get("/schema", h.GetSchema)
	r.Get("/records", h.GetRecords)
	r.Get("/filters", h.GetFilterOptions)
	r.Post("/reload", customMiddleware.ReloadTraceHandler("api", h.Reload))

	return r
}

// GetInfo handles GET /api/dataset with RFC 7807 errors
func (h *DatasetHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching dataset info",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	info, err := h.service.Info(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get dataset info",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

// GetSchema handles GET /api/dataset/schema with RFC 7807 errors
func (h *DatasetHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching dataset schema",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	schema, err := h.service.Schema(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get dataset schema",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   schema,
		"count":  len(schema.Missing),
	})
}

// GetRecords handles GET /api/dataset/records with RFC 7807 errors.
// Filters, limit and offset come from the query string.
func (h *DatasetHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req, err := apiv1.RecordsRequestFromQuery(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("query", err.Error()))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "fetching dataset records",
		slog.String("request_id", reqID),
		slog.Int("limit", req.Limit),
		slog.Int("offset", req.Offset),
	)

	page, err := h.service.Records(r.Context(), toFilter(req.FilterParams), req.Limit, req.Offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get dataset records",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   page,
		"count":  len(page.Records),
	})
}

// GetFilterOptions handles GET /api/dataset/filters with RFC 7807
// errors. It returns the distinct values the sidebar offers.
func (h *DatasetHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching filter options",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	options, err := h.service.FilterOptions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get filter options",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   options,
	})
}

// Reload handles POST /api/dataset/reload with RFC 7807 errors. A
// force reload bypasses the snapshot cache; force is read from the
// query string or an optional JSON body.
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	force := r.URL.Query().Get("force") == "true"
	if r.ContentLength > 0 {
		var req apiv1.ReloadRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		force = force || req.Force
	}

	h.logger.InfoContext(r.Context(), "dataset reload requested",
		slog.String("request_id", reqID),
		slog.Bool("force", force),
	)

	start := time.Now()
	result, err := h.service.Reload(r.Context(), force)
	if err != nil {
		customMiddleware.RecordDatasetLoadMetrics(r.Context(), "reload", 0, time.Since(start), false)
		h.logger.ErrorContext(r.Context(), "dataset reload failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrReloadInProgress) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusConflict,
				"RELOAD_IN_PROGRESS",
				"A dataset reload is already running",
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	customMiddleware.RecordDatasetLoadMetrics(r.Context(), "reload", result.Info.Rows, result.Duration, true)
	customMiddleware.RecordDatasetCacheMetrics(r.Context(), result.FromCache)

	h.logger.InfoContext(r.Context(), "dataset reload completed",
		slog.String("request_id", reqID),
		slog.Int("rows", result.Info.Rows),
		slog.Bool("from_cache", result.FromCache),
		slog.Duration("duration", result.Duration),
	)

	render.JSON(w, r, map[string]interface{}{
		"status":      "success",
		"data":        result.Info,
		"from_cache":  result.FromCache,
		"duration_ms": result.Duration.Milliseconds(),
	})
}
