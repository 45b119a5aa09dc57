package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"engineatlas/internal/dataset"
	"engineatlas/internal/pipeline"
)

// Pipeline wires the cleaning stages behind the single entry point.
// A Pipeline is safe for concurrent Clean calls; each run works on
// its own tables.
type Pipeline struct {
	logger  *slog.Logger
	loader  *Loader
	runner  *pipeline.Runner
	metrics *Metrics
}

// NewPipeline builds the standard pipeline. metrics may be nil.
func NewPipeline(logger *slog.Logger, metrics *Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:  logger.With(slog.String("component", "dataprocessing")),
		loader:  NewLoader(logger),
		runner:  pipeline.NewRunner(logger),
		metrics: metrics,
	}
}

// SetDelimiter overrides the raw file delimiter.
func (p *Pipeline) SetDelimiter(d rune) { p.loader.SetDelimiter(d) }

// SetProgressFunc registers a callback receiving per-stage progress.
func (p *Pipeline) SetProgressFunc(fn pipeline.ProgressFunc) { p.runner.SetProgressFunc(fn) }

// Stages returns the cleaning sequence in execution order.
func (p *Pipeline) Stages() []pipeline.Stage {
	return []pipeline.Stage{
		NewNormalizer(p.logger),
		NewCoercer(p.logger, p.metrics),
		NewClipper(p.logger, p.metrics),
		NewFeatureEngineer(p.logger),
	}
}

// Clean loads the raw file at path and runs normalization, coercion,
// clipping and feature engineering, returning the canonical table.
// The result is deterministic for a fixed input file.
func (p *Pipeline) Clean(ctx context.Context, path string) (*dataset.Table, error) {
	start := time.Now()
	runID := uuid.New().String()

	raw, err := p.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	cleaned, _, err := p.runner.Run(ctx, runID, raw, p.Stages()...)
	if err != nil {
		return nil, err
	}

	p.metrics.observeRun(time.Since(start).Seconds(), cleaned.NumRows())
	p.logger.InfoContext(ctx, "dataset cleaned",
		slog.String("run_id", runID),
		slog.String("path", path),
		slog.Int("rows", cleaned.NumRows()),
		slog.Int("columns", cleaned.NumCols()),
		slog.Duration("duration", time.Since(start)))
	return cleaned, nil
}
