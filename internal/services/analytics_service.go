package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"engineatlas/internal/analytics"
	"engineatlas/internal/dataset"
	apierrors "engineatlas/internal/errors"
	"engineatlas/pkg/contracts/domain"
)

// AnalyticsService computes the dashboard aggregates over filtered
// views of the canonical dataset.
type AnalyticsService struct {
	datasets DatasetProvider
	analyzer *analytics.Analyzer
	logger   *slog.Logger
}

// NewAnalyticsService wires the analyzer against a dataset provider.
func NewAnalyticsService(datasets DatasetProvider, analyzer *analytics.Analyzer, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		datasets: datasets,
		analyzer: analyzer,
		logger:   logger.With(slog.String("component", "analytics_service")),
	}
}

// Overview summarizes the filtered view for the dashboard header.
func (s *AnalyticsService) Overview(ctx context.Context, f dataset.Filter) (domain.OverviewStats, error) {
	view, err := s.datasets.View(ctx, f)
	if err != nil {
		return domain.OverviewStats{}, err
	}
	return s.analyzer.Overview(view), nil
}

// Trends returns the per-year evolution of the headline metrics.
func (s *AnalyticsService) Trends(ctx context.Context, f dataset.Filter) ([]domain.TrendPoint, error) {
	view, err := s.datasets.View(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Trends(view), nil
}

// BrandBattles ranks manufacturers against each other on the
// headline metrics.
func (s *AnalyticsService) BrandBattles(ctx context.Context, f dataset.Filter) (domain.BrandBattles, error) {
	view, err := s.datasets.View(ctx, f)
	if err != nil {
		return domain.BrandBattles{}, err
	}
	return s.analyzer.BrandBattles(view), nil
}

// Leaderboards returns the top engines per metric.
func (s *AnalyticsService) Leaderboards(ctx context.Context, f dataset.Filter) (domain.Leaderboards, error) {
	view, err := s.datasets.View(ctx, f)
	if err != nil {
		return domain.Leaderboards{}, err
	}
	return s.analyzer.Leaderboards(view), nil
}

// EngineCard builds the DNA card for the representative engine of the
// filtered view. A non-empty signature narrows the view to that engine
// family first. A view without a representative engine fails with
// ErrEngineMissing.
func (s *AnalyticsService) EngineCard(ctx context.Context, f dataset.Filter, signature string) (*domain.EngineCard, error) {
	view, err := s.datasets.View(ctx, f)
	if err != nil {
		return nil, err
	}
	if signature != "" {
		sigCol, ok := view.Column(dataset.ColEngineSignature)
		if !ok {
			return nil, fmt.Errorf("%w: signature %q", apierrors.ErrEngineMissing, signature)
		}
		view = view.FilterRows(func(row int) bool {
			return sigCol.Text(row) == signature
		})
		if view.NumRows() == 0 {
			return nil, fmt.Errorf("%w: signature %q", apierrors.ErrEngineMissing, signature)
		}
	}
	card, err := s.analyzer.Card(view)
	if err != nil {
		if errors.Is(err, analytics.ErrNoRepresentative) {
			return nil, fmt.Errorf("%w: %v", apierrors.ErrEngineMissing, err)
		}
		return nil, err
	}
	return card, nil
}
