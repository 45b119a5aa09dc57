package dataprocessing

import (
	"context"
	"log/slog"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"engineatlas/internal/dataset"
)

// NumericColumns are the canonical columns that hold numbers in this
// schema family. Columns absent from a given file are skipped.
var NumericColumns = []string{
	dataset.ColYearFrom,
	dataset.ColYearTo,
	dataset.ColEngineHP,
	dataset.ColMaxPowerKW,
	dataset.ColEngineHPRPM,
	dataset.ColMaxTorqueNM,
	dataset.ColAcceleration,
	dataset.ColMixedFuel,
	dataset.ColCityFuel,
	dataset.ColHighwayFuel,
	dataset.ColCO2,
	dataset.ColBatteryCapacity,
	dataset.ColElectricRange,
	dataset.ColChargingTime,
	dataset.ColNumberOfCylinders,
	dataset.ColValvesPerCylinder,
}

var reNonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// CoerceCell converts one raw cell to a float: thousands-separator
// commas are dropped, every other non-numeric character is removed,
// and whatever remains is parsed. Anything unparseable is missing.
func CoerceCell(raw string) dataset.Float {
	s := strings.ReplaceAll(raw, ",", "")
	s = reNonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return dataset.Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return dataset.Missing()
	}
	return dataset.FloatFrom(v)
}

// Coercer is the numeric coercion stage.
type Coercer struct {
	logger  *slog.Logger
	metrics *Metrics
	columns []string
}

// NewCoercer returns the stage for the standard numeric column list.
func NewCoercer(logger *slog.Logger, metrics *Metrics) *Coercer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coercer{
		logger:  logger.With(slog.String("stage", "coerce")),
		metrics: metrics,
		columns: NumericColumns,
	}
}

// ID implements pipeline.Stage.
func (c *Coercer) ID() string { return "coerce" }

// Name implements pipeline.Stage.
func (c *Coercer) Name() string { return "Numeric Coercer" }

// colWork carries one column through the parallel conversion.
type colWork struct {
	name   string
	texts  []string
	values []dataset.Float
	failed int
}

// Run converts each designated column on a copy of the table. Columns
// are independent, so parsing fans out across them; the table itself is
// only touched after every column finished. Columns that are already
// numeric are left untouched.
func (c *Coercer) Run(ctx context.Context, tbl *dataset.Table) (*dataset.Table, error) {
	out := tbl.Clone()

	var work []*colWork
	for _, name := range c.columns {
		col, ok := out.Column(name)
		if !ok || col.Kind() == dataset.KindFloat {
			continue
		}
		work = append(work, &colWork{name: name, texts: col.Texts()})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, w := range work {
		w := w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w.values = make([]dataset.Float, len(w.texts))
			for i, raw := range w.texts {
				w.values[i] = CoerceCell(raw)
				if !w.values[i].Valid {
					w.failed++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, w := range work {
		if err := out.ReplaceFloats(w.name, w.values); err != nil {
			return nil, err
		}
		c.metrics.countCoerced(w.name, "ok", len(w.values)-w.failed)
		c.metrics.countCoerced(w.name, "missing", w.failed)
		failed += w.failed
	}

	c.logger.DebugContext(ctx, "numeric columns coerced",
		slog.Int("columns", len(work)),
		slog.Int("missing_cells", failed))
	return out, nil
}
