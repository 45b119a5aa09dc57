package dataprocessing

import (
	"context"
	"log/slog"

	"engineatlas/internal/dataset"
)

// Bound is an inclusive physical range for one column.
type Bound struct {
	Low  float64
	High float64
}

// OutlierBounds are the physically plausible ranges. Values outside a
// range are clamped to its edge, never dropped; missing values stay
// missing.
var OutlierBounds = map[string]Bound{
	dataset.ColEngineHP:          {Low: 20, High: 2000},
	dataset.ColMaxPowerKW:        {Low: 10, High: 1500},
	dataset.ColAcceleration:      {Low: 1.0, High: 40.0},
	dataset.ColMixedFuel:         {Low: 1.0, High: 40.0},
	dataset.ColCO2:               {Low: 0.0, High: 1000.0},
	dataset.ColNumberOfCylinders: {Low: 1, High: 16},
}

// clipOrder fixes the iteration order for logging and metrics.
var clipOrder = []string{
	dataset.ColEngineHP,
	dataset.ColMaxPowerKW,
	dataset.ColAcceleration,
	dataset.ColMixedFuel,
	dataset.ColCO2,
	dataset.ColNumberOfCylinders,
}

// Clipper is the outlier clamping stage.
type Clipper struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewClipper returns the stage.
func NewClipper(logger *slog.Logger, metrics *Metrics) *Clipper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clipper{
		logger:  logger.With(slog.String("stage", "clip")),
		metrics: metrics,
	}
}

// ID implements pipeline.Stage.
func (c *Clipper) ID() string { return "clip" }

// Name implements pipeline.Stage.
func (c *Clipper) Name() string { return "Outlier Clipper" }

// Run clamps each bounded column on a copy of the table.
func (c *Clipper) Run(ctx context.Context, tbl *dataset.Table) (*dataset.Table, error) {
	out := tbl.Clone()

	totalClipped := 0
	for _, name := range clipOrder {
		bound := OutlierBounds[name]
		col, ok := out.Column(name)
		if !ok || col.Kind() != dataset.KindFloat {
			continue
		}

		src := col.Floats()
		values := make([]dataset.Float, len(src))
		clipped := 0
		for i, v := range src {
			if !v.Valid {
				values[i] = v
				continue
			}
			switch {
			case v.Value < bound.Low:
				values[i] = dataset.FloatFrom(bound.Low)
				clipped++
			case v.Value > bound.High:
				values[i] = dataset.FloatFrom(bound.High)
				clipped++
			default:
				values[i] = v
			}
		}
		if clipped == 0 {
			continue
		}
		if err := out.ReplaceFloats(name, values); err != nil {
			return nil, err
		}
		c.metrics.countClipped(name, clipped)
		totalClipped += clipped
	}

	c.logger.DebugContext(ctx, "outliers clipped",
		slog.Int("cells", totalClipped))
	return out, nil
}
