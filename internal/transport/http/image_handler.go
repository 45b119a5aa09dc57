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

// ImageHandler resolves engine illustration images with RFC 7807
// compliance.
type ImageHandler struct {
	service      ImageServiceInterface
	validation   *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewImageHandler creates a new image handler with RFC 7807 error handling
func NewImageHandler(service ImageServiceInterface, validation *customMiddleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ImageHandler {
	return &ImageHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "image_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the image routes with proper Chi patterns
func (h *ImageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.Lookup)

	return r
}

// Lookup handles GET /api/images with RFC 7807 errors. The title
// query parameter names the page to resolve a lead image for.
func (h *ImageHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req := apiv1.ImageRequest{Title: r.URL.Query().Get("title")}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "image lookup requested",
		slog.String("request_id", reqID),
		slog.String("title", req.Title),
	)

	start := time.Now()
	url, err := h.service.ImageURL(r.Context(), req.Title)
	customMiddleware.RecordImageLookupMetrics(r.Context(), "wikipedia", time.Since(start), err == nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "image lookup failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("title", req.Title),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"title":     req.Title,
			"image_url": url,
		},
	})
}
