package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "engineatlas/internal/errors"
	customMiddleware "engineatlas/internal/middleware"
	apiv1 "engineatlas/pkg/contracts/api/v1"
)

// EngineHandler serves the engine spotlight card with RFC 7807
// compliance.
type EngineHandler struct {
	service      AnalyticsServiceInterface
	validation   *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewEngineHandler creates a new engine handler with RFC 7807 error handling
func NewEngineHandler(service AnalyticsServiceInterface, validation *customMiddleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *EngineHandler {
	return &EngineHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "engine_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the engine routes with proper Chi patterns
func (h *EngineHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/card", h.GetCard)

	return r
}

// GetCard handles GET /api/engines/card with RFC 7807 errors. An
// optional signature query parameter narrows the card to one engine
// family; otherwise the card represents the filtered view.
func (h *EngineHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	params, err := apiv1.FilterParamsFromQuery(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("query", err.Error()))
		return
	}
	req := apiv1.CardRequest{
		Signature:    r.URL.Query().Get("signature"),
		FilterParams: params,
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "fetching engine card",
		slog.String("request_id", reqID),
		slog.String("signature", req.Signature),
	)

	card, err := h.service.EngineCard(r.Context(), toFilter(req.FilterParams), req.Signature)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build engine card",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("signature", req.Signature),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   card,
	})
}
