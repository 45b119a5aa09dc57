package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "engineatlas/internal/errors"
	"engineatlas/internal/services"
)

// HealthHandler serves the health, version and stats endpoints. The
// check endpoints render their status structs directly so load
// balancers and the dashboard read one shape; only /api/stats can
// fail, and it answers through the RFC 7807 handler.
type HealthHandler struct {
	service      *services.HealthService
	errorHandler *apierrors.ErrorHandler
}

// NewHealthHandler creates the handler for the health endpoint group.
func NewHealthHandler(service *services.HealthService, errorHandler *apierrors.ErrorHandler) *HealthHandler {
	return &HealthHandler{service: service, errorHandler: errorHandler}
}

// Routes returns the /api/health subtree.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.HealthCheck)
	r.Get("/ready", h.ReadinessCheck)
	r.Get("/live", h.LivenessCheck)

	return r
}

// HealthCheck handles GET /api/health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.HealthCheck(r.Context()))
}

// ReadinessCheck handles GET /api/health/ready. Load balancers key on
// the status code, so a not_ready report answers 503.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.ReadinessCheck(r.Context())
	if status.Status != "ready" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

// LivenessCheck handles GET /api/health/live.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.LivenessCheck(r.Context()))
}

// Version handles GET /api/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}

// Stats handles GET /api/stats.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}
