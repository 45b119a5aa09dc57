package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "engineatlas/internal/errors"
	customMiddleware "engineatlas/internal/middleware"
	apiv1 "engineatlas/pkg/contracts/api/v1"
)

// ClusterHandler handles engine clustering HTTP requests with RFC 7807
// compliance.
type ClusterHandler struct {
	service      ClusterServiceInterface
	validation   *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewClusterHandler creates a new cluster handler with RFC 7807 error handling
func NewClusterHandler(service ClusterServiceInterface, validation *customMiddleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClusterHandler {
	return &ClusterHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "cluster_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the cluster routes with proper Chi patterns
func (h *ClusterHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.RunClustering)

	return r
}

// RunClustering handles GET /api/clusters with RFC 7807 errors. The
// cluster count comes from the k query parameter; when absent the
// configured default applies. Filters narrow the rows considered.
func (h *ClusterHandler) RunClustering(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req, err := apiv1.ClusterRequestFromQuery(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("query", err.Error()))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	k := req.K
	if k == 0 {
		k = h.service.Bounds().DefaultK
	}

	h.logger.InfoContext(r.Context(), "clustering requested",
		slog.String("request_id", reqID),
		slog.Int("k", k),
	)

	start := time.Now()
	result, err := h.service.Compute(r.Context(), toFilter(req.FilterParams), k)
	duration := time.Since(start)
	if err != nil {
		customMiddleware.RecordClusterRunMetrics(r.Context(), k, duration, false)
		h.logger.ErrorContext(r.Context(), "clustering failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.Int("k", k),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	customMiddleware.RecordClusterRunMetrics(r.Context(), result.K, duration, true)

	h.logger.InfoContext(r.Context(), "clustering completed",
		slog.String("request_id", reqID),
		slog.Int("k", result.K),
		slog.Int("rows", len(result.Points)),
		slog.Duration("duration", duration),
	)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  len(result.Points),
	})
}
