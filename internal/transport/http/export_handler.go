package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "engineatlas/internal/errors"
	customMiddleware "engineatlas/internal/middleware"
	apiv1 "engineatlas/pkg/contracts/api/v1"
)

const (
	defaultCSVName      = "engines.csv"
	defaultWorkbookName = "engine-analytics.xlsx"

	contentTypeCSV      = "text/csv; charset=utf-8"
	contentTypeWorkbook = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler streams dataset exports. Unlike the JSON handlers it
// writes files, so errors surfaced after the first byte cannot be
// reported cleanly; the export service is built to fail before
// writing.
type ExportHandler struct {
	service      ExportServiceInterface
	validation   *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler with RFC 7807 error handling
func NewExportHandler(service ExportServiceInterface, validation *customMiddleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes with proper Chi patterns
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/csv", h.ExportCSV)
	r.Get("/xlsx", h.ExportWorkbook)

	return r
}

// ExportCSV handles GET /api/export/csv. The filtered view is
// streamed as UTF-8 CSV with a BOM so spreadsheet tools detect the
// encoding. Columns may be narrowed with the columns parameter.
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = defaultCSVName
	}

	h.logger.InfoContext(r.Context(), "csv export requested",
		slog.String("request_id", reqID),
		slog.String("filename", filename),
		slog.Int("columns", len(req.Columns)),
	)

	w.Header().Set("Content-Type", contentTypeCSV)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.service.WriteCSV(r.Context(), w, toFilter(req.FilterParams), req.Columns); err != nil {
		w.Header().Del("Content-Disposition")
		h.logger.ErrorContext(r.Context(), "csv export failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}
}

// ExportWorkbook handles GET /api/export/xlsx. The workbook bundles
// the overview, trends, leaderboards and a clustering run; k selects
// the cluster count the same way /api/clusters does.
func (h *ExportHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = defaultWorkbookName
	}

	h.logger.InfoContext(r.Context(), "workbook export requested",
		slog.String("request_id", reqID),
		slog.String("filename", filename),
		slog.Int("k", req.K),
	)

	w.Header().Set("Content-Type", contentTypeWorkbook)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.service.WriteWorkbook(r.Context(), w, toFilter(req.FilterParams), req.K); err != nil {
		w.Header().Del("Content-Disposition")
		h.logger.ErrorContext(r.Context(), "workbook export failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}
}

func (h *ExportHandler) decodeExport(w http.ResponseWriter, r *http.Request) (apiv1.ExportRequest, bool) {
	req, err := apiv1.ExportRequestFromQuery(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("query", err.Error()))
		return apiv1.ExportRequest{}, false
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return apiv1.ExportRequest{}, false
	}
	return req, true
}
