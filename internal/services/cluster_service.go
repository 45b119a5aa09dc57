package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"engineatlas/internal/analytics"
	"engineatlas/internal/cluster"
	"engineatlas/internal/config"
	"engineatlas/internal/dataset"
	apierrors "engineatlas/internal/errors"
	"engineatlas/pkg/contracts/domain"
)

// DatasetProvider is the slice of DatasetService the computing
// services need: a filtered view of the canonical dataset.
type DatasetProvider interface {
	View(ctx context.Context, f dataset.Filter) (*dataset.Table, error)
}

// ClusterService validates cluster requests against the configured
// bounds and runs the engine over the current filtered view.
type ClusterService struct {
	datasets DatasetProvider
	engine   *cluster.Engine
	analyzer *analytics.Analyzer
	bounds   config.ClusterConfig
	logger   *slog.Logger
}

// NewClusterService wires the engine and the summary analyzer against
// a dataset provider.
func NewClusterService(datasets DatasetProvider, engine *cluster.Engine, analyzer *analytics.Analyzer, bounds config.ClusterConfig, logger *slog.Logger) *ClusterService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClusterService{
		datasets: datasets,
		engine:   engine,
		analyzer: analyzer,
		bounds:   bounds,
		logger:   logger.With(slog.String("component", "cluster_service")),
	}
}

// Bounds returns the configured k range.
func (s *ClusterService) Bounds() config.ClusterConfig { return s.bounds }

// Compute clusters the filtered view into k groups. k of zero falls
// back to the configured default; values outside [MinK, MaxK] fail
// with ErrClusterCountRange before any work happens. Views with fewer
// complete-feature rows than k fail with ErrTooFewCompleteRows.
func (s *ClusterService) Compute(ctx context.Context, f dataset.Filter, k int) (*domain.ClusterResult, error) {
	if k == 0 {
		k = s.bounds.DefaultK
	}
	if k < s.bounds.MinK || k > s.bounds.MaxK {
		return nil, fmt.Errorf("%w: k must be between %d and %d, got %d",
			apierrors.ErrClusterCountRange, s.bounds.MinK, s.bounds.MaxK, k)
	}

	view, err := s.datasets.View(ctx, f)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	clustered, err := s.engine.Compute(ctx, view, k)
	if err != nil {
		switch {
		case errors.Is(err, cluster.ErrTooFewRows):
			return nil, fmt.Errorf("%w: %v", apierrors.ErrTooFewCompleteRows, err)
		case errors.Is(err, cluster.ErrClusterCount):
			return nil, fmt.Errorf("%w: %v", apierrors.ErrClusterCountRange, err)
		default:
			logServiceError(ctx, "cluster_service", "compute", "cluster run failed",
				slog.Int("k", k),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("cluster run: %w", err)
		}
	}

	result := &domain.ClusterResult{
		K:         k,
		Rows:      clustered.NumRows(),
		Points:    clusterPoints(clustered),
		Summaries: s.analyzer.ClusterSummaries(clustered),
	}
	s.logger.InfoContext(ctx, "cluster run completed",
		slog.Int("k", k),
		slog.Int("rows", result.Rows),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// clusterPoints flattens the augmented table into scatter-plot points.
func clusterPoints(t *dataset.Table) []domain.ClusterPoint {
	idCol, _ := t.Column(dataset.ColClusterID)
	nameCol, _ := t.Column(dataset.ColClusterName)
	xCol, _ := t.Column(dataset.ColPCAX)
	yCol, _ := t.Column(dataset.ColPCAY)
	sigCol, hasSig := t.Column(dataset.ColEngineSignature)
	makeCol, hasMake := t.Column(dataset.ColMake)
	modelCol, hasModel := t.Column(dataset.ColModel)

	points := make([]domain.ClusterPoint, t.NumRows())
	for i := range points {
		p := domain.ClusterPoint{
			ClusterID: int(idCol.Float(i).Or(0)),
			Name:      nameCol.Text(i),
			PCAX:      xCol.Float(i).Or(0),
			PCAY:      yCol.Float(i).Or(0),
		}
		if hasSig {
			p.Signature = sigCol.Text(i)
		}
		if hasMake {
			p.Make = makeCol.Text(i)
		}
		if hasModel {
			p.Model = modelCol.Text(i)
		}
		points[i] = p
	}
	return points
}
