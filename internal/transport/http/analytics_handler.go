package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "engineatlas/internal/errors"
	customMiddleware "engineatlas/internal/middleware"
)

// AnalyticsHandler handles analytics HTTP requests with RFC 7807
// compliance. Every endpoint accepts the shared filter parameters.
type AnalyticsHandler struct {
	service      AnalyticsServiceInterface
	validation   *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates a new analytics handler with RFC 7807 error handling
func NewAnalyticsHandler(service AnalyticsServiceInterface, validation *customMiddleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "analytics_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analytics routes with proper Chi patterns
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/overview", h.GetOverview)
	r.Get("/trends", h.GetTrends)
	r.Get("/brands", h.GetBrandBattles)
	r.Get("/leaderboards", h.GetLeaderboards)

	return r
}

// GetOverview handles GET /api/analytics/overview with RFC 7807 errors
func (h *AnalyticsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	f, ok := decodeFilter(w, r, h.validation, h.errorHandler)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching overview stats",
		slog.String("request_id", reqID),
		slog.String("path", r.URL.Path),
	)

	stats, err := h.service.Overview(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get overview stats",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}

// GetTrends handles GET /api/analytics/trends with RFC 7807 errors
func (h *AnalyticsHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	f, ok := decodeFilter(w, r, h.validation, h.errorHandler)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching yearly trends",
		slog.String("request_id", reqID),
		slog.String("path", r.URL.Path),
	)

	points, err := h.service.Trends(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get yearly trends",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   points,
		"count":  len(points),
	})
}

// GetBrandBattles handles GET /api/analytics/brands with RFC 7807 errors
func (h *AnalyticsHandler) GetBrandBattles(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	f, ok := decodeFilter(w, r, h.validation, h.errorHandler)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching brand comparisons",
		slog.String("request_id", reqID),
		slog.String("path", r.URL.Path),
	)

	battles, err := h.service.BrandBattles(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get brand comparisons",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   battles,
	})
}

// GetLeaderboards handles GET /api/analytics/leaderboards with RFC 7807 errors
func (h *AnalyticsHandler) GetLeaderboards(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	f, ok := decodeFilter(w, r, h.validation, h.errorHandler)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching leaderboards",
		slog.String("request_id", reqID),
		slog.String("path", r.URL.Path),
	)

	boards, err := h.service.Leaderboards(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get leaderboards",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   boards,
	})
}
