package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"engineatlas/internal/analytics"
	"engineatlas/internal/dataset"
	apierrors "engineatlas/internal/errors"
	"engineatlas/internal/exporter"
	"engineatlas/pkg/contracts/domain"
)

// ClusterRunner runs a clustering over the filtered view. The cluster
// service implements it.
type ClusterRunner interface {
	Compute(ctx context.Context, f dataset.Filter, k int) (*domain.ClusterResult, error)
}

// ExportService streams filtered views as CSV and renders the XLSX
// analytics workbook.
type ExportService struct {
	datasets DatasetProvider
	clusters ClusterRunner
	analyzer *analytics.Analyzer
	exporter *exporter.Exporter
	logger   *slog.Logger
}

// NewExportService wires the exporter against the dataset and cluster
// services.
func NewExportService(datasets DatasetProvider, clusters ClusterRunner, analyzer *analytics.Analyzer, exp *exporter.Exporter, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		datasets: datasets,
		clusters: clusters,
		analyzer: analyzer,
		exporter: exp,
		logger:   logger.With(slog.String("component", "export_service")),
	}
}

// WriteCSV streams the filtered view to w. columns selects and orders
// the exported columns; empty means all. The stream carries a UTF-8
// BOM so Excel opens it correctly.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, f dataset.Filter, columns []string) error {
	view, err := s.datasets.View(ctx, f)
	if err != nil {
		return err
	}
	for _, name := range columns {
		if !view.Has(name) {
			return fmt.Errorf("%w: unknown column %q", apierrors.ErrInvalidParameter, name)
		}
	}
	err = s.exporter.WriteCSV(w, view, exporter.CSVOptions{
		Columns:   columns,
		BOMPrefix: true,
	})
	if err != nil {
		logServiceError(ctx, "export_service", "write_csv", "csv export failed",
			slog.Int("rows", view.NumRows()),
			slog.String("error", err.Error()))
		return err
	}
	s.logger.InfoContext(ctx, "csv export written",
		slog.Int("rows", view.NumRows()),
		slog.Int("columns", len(columns)))
	return nil
}

// WriteWorkbook renders the analytics workbook for the filtered view.
// When the view carries too few complete rows to cluster, the cluster
// sheet stays empty instead of failing the whole export.
func (s *ExportService) WriteWorkbook(ctx context.Context, w io.Writer, f dataset.Filter, k int) error {
	view, err := s.datasets.View(ctx, f)
	if err != nil {
		return err
	}

	data := exporter.WorkbookData{
		Overview:     s.analyzer.Overview(view),
		Trends:       s.analyzer.Trends(view),
		Leaderboards: s.analyzer.Leaderboards(view),
	}

	result, err := s.clusters.Compute(ctx, f, k)
	switch {
	case err == nil:
		data.Clusters = result.Summaries
	case errors.Is(err, apierrors.ErrTooFewCompleteRows):
		s.logger.WarnContext(ctx, "workbook without cluster sheet",
			slog.Int("k", k),
			slog.String("reason", err.Error()))
	default:
		return err
	}

	if err := s.exporter.WriteWorkbook(w, data); err != nil {
		logServiceError(ctx, "export_service", "write_workbook", "workbook export failed",
			slog.String("error", err.Error()))
		return err
	}
	s.logger.InfoContext(ctx, "workbook export written",
		slog.Int("rows", view.NumRows()),
		slog.Int("clusters", len(data.Clusters)))
	return nil
}
