package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"engineatlas/internal/dataset"
)

var reNumberToken = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// ParseBoreStroke extracts up to two numeric tokens from a combined
// bore×stroke field such as "82.5 x 92.8 mm". The first token is the
// bore, the second the stroke; a single token yields bore only.
func ParseBoreStroke(raw string) (bore, stroke dataset.Float) {
	tokens := reNumberToken.FindAllString(raw, 2)
	if len(tokens) >= 1 {
		if v, err := strconv.ParseFloat(tokens[0], 64); err == nil {
			bore = dataset.FloatFrom(v)
		}
	}
	if len(tokens) >= 2 {
		if v, err := strconv.ParseFloat(tokens[1], 64); err == nil {
			stroke = dataset.FloatFrom(v)
		}
	}
	return bore, stroke
}

// Displacement computes liters from bore and stroke in millimeters
// and the cylinder count. All three must be present and strictly
// positive, otherwise the result is missing.
func Displacement(boreMM, strokeMM, cylinders dataset.Float) dataset.Float {
	if !boreMM.Valid || !strokeMM.Valid || !cylinders.Valid {
		return dataset.Missing()
	}
	if boreMM.Value <= 0 || strokeMM.Value <= 0 || cylinders.Value <= 0 {
		return dataset.Missing()
	}
	volumeMM3 := math.Pi * math.Pow(boreMM.Value/2.0, 2) * strokeMM.Value * cylinders.Value
	return dataset.FloatFrom(volumeMM3 / 1_000_000.0)
}

// scoreMetrics are the balanced-score inputs with their direction:
// +1 when higher is better, -1 when lower is better. Order is part of
// the contract only insofar as it keeps runs reproducible.
var scoreMetrics = []struct {
	column    string
	direction float64
}{
	{column: dataset.ColEngineHP, direction: 1.0},
	{column: dataset.ColAcceleration, direction: -1.0},
	{column: dataset.ColMixedFuel, direction: -1.0},
	{column: dataset.ColCO2, direction: -1.0},
}

// FeatureEngineer derives year, bore/stroke, displacement, power
// density, the engine signature and the balanced score.
type FeatureEngineer struct {
	logger *slog.Logger
}

// NewFeatureEngineer returns the stage.
func NewFeatureEngineer(logger *slog.Logger) *FeatureEngineer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureEngineer{logger: logger.With(slog.String("stage", "features"))}
}

// ID implements pipeline.Stage.
func (f *FeatureEngineer) ID() string { return "features" }

// Name implements pipeline.Stage.
func (f *FeatureEngineer) Name() string { return "Feature Engineer" }

// Run attaches the derived columns to a copy of the table. Every
// derivation degrades to a missing value on insufficient input.
func (f *FeatureEngineer) Run(ctx context.Context, tbl *dataset.Table) (*dataset.Table, error) {
	out := tbl.Clone()
	n := out.NumRows()

	if yearFrom, ok := out.Column(dataset.ColYearFrom); ok {
		years := make([]dataset.Float, n)
		for i := 0; i < n; i++ {
			years[i] = yearFrom.Float(i)
		}
		if err := setFloats(out, dataset.ColYear, years); err != nil {
			return nil, err
		}
	}

	bore, stroke := f.boreStroke(out, n)
	if err := setFloats(out, dataset.ColBoreMM, bore); err != nil {
		return nil, err
	}
	if err := setFloats(out, dataset.ColStrokeMM, stroke); err != nil {
		return nil, err
	}

	displacement := f.displacement(out, bore, stroke, n)
	if err := setFloats(out, dataset.ColDisplacementL, displacement); err != nil {
		return nil, err
	}

	if hpCol, ok := out.Column(dataset.ColEngineHP); ok {
		density := make([]dataset.Float, n)
		for i := 0; i < n; i++ {
			hp := hpCol.Float(i)
			d := displacement[i]
			if !hp.Valid || !d.Valid || d.Value == 0 {
				continue
			}
			density[i] = dataset.FloatFrom(hp.Value / d.Value)
		}
		if err := setFloats(out, dataset.ColHPPerLiter, density); err != nil {
			return nil, err
		}
	}

	signatures := f.signatures(out, displacement, n)
	if err := setTexts(out, dataset.ColEngineSignature, signatures); err != nil {
		return nil, err
	}

	scores := f.balancedScores(out, n)
	if err := setFloats(out, dataset.ColBalancedScore, scores); err != nil {
		return nil, err
	}

	f.logger.DebugContext(ctx, "features derived", slog.Int("rows", n))
	return out, nil
}

// boreStroke resolves bore and stroke per row: the combined field is
// tokenized first, then a dedicated bore column fills any still
// missing bore. Both columns are produced even when no source exists.
func (f *FeatureEngineer) boreStroke(t *dataset.Table, n int) (bore, stroke []dataset.Float) {
	bore = make([]dataset.Float, n)
	stroke = make([]dataset.Float, n)

	if combined, ok := t.Column(dataset.ColBoreStrokeCombined); ok {
		for i := 0; i < n; i++ {
			bore[i], stroke[i] = ParseBoreStroke(combined.Text(i))
		}
	}
	if fallback, ok := t.Column(dataset.ColCylinderBore); ok {
		for i := 0; i < n; i++ {
			if !bore[i].Valid {
				bore[i] = numericCell(fallback, i)
			}
		}
	}
	return bore, stroke
}

func (f *FeatureEngineer) displacement(t *dataset.Table, bore, stroke []dataset.Float, n int) []dataset.Float {
	cylinders, hasCyl := t.Column(dataset.ColNumberOfCylinders)
	capacity, hasCap := t.Column(dataset.ColCapacityCM3)

	out := make([]dataset.Float, n)
	for i := 0; i < n; i++ {
		cyl := dataset.Missing()
		if hasCyl {
			cyl = cylinders.Float(i)
		}
		out[i] = Displacement(bore[i], stroke[i], cyl)
		if !out[i].Valid && hasCap {
			if c := numericCell(capacity, i); c.Valid {
				out[i] = dataset.FloatFrom(c.Value / 1000.0)
			}
		}
	}
	return out
}

// signatures builds the human-readable identity string: make, engine
// type, cylinder layout, cylinder count and displacement rounded to
// two decimals with an "L" suffix, with literal "nan" fragments
// removed and the result trimmed.
func (f *FeatureEngineer) signatures(t *dataset.Table, displacement []dataset.Float, n int) []string {
	makeCol, hasMake := t.Column(dataset.ColMake)
	typeCol, hasType := t.Column(dataset.ColEngineType)
	layoutCol, hasLayout := t.Column(dataset.ColCylinderLayout)
	cylCol, hasCyl := t.Column(dataset.ColNumberOfCylinders)

	text := func(col *dataset.Column, ok bool, i int) string {
		if !ok {
			return ""
		}
		return strings.TrimSpace(col.Text(i))
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		displText := ""
		if d := displacement[i]; d.Valid {
			displText = formatRounded(d.Value)
		}
		parts := []string{
			text(makeCol, hasMake, i),
			text(typeCol, hasType, i),
			text(layoutCol, hasLayout, i),
			text(cylCol, hasCyl, i),
			displText + "L",
		}
		sig := strings.Join(parts, " ")
		sig = strings.ReplaceAll(sig, "nan", "")
		out[i] = strings.TrimSpace(sig)
	}
	return out
}

// balancedScores standardizes each metric against the whole table and
// averages the contributions present per row. A metric with zero or
// undefined deviation contributes exactly 0.0 for every row.
func (f *FeatureEngineer) balancedScores(t *dataset.Table, n int) []dataset.Float {
	type metricStat struct {
		col        *dataset.Column
		direction  float64
		mean       float64
		std        float64
		degenerate bool
	}

	var stats []metricStat
	for _, m := range scoreMetrics {
		col, ok := t.Column(m.column)
		if !ok || col.Kind() != dataset.KindFloat {
			continue
		}
		mean, std, count := meanStd(col.Floats())
		stats = append(stats, metricStat{
			col:        col,
			direction:  m.direction,
			mean:       mean,
			std:        std,
			degenerate: count < 2 || std == 0,
		})
	}

	out := make([]dataset.Float, n)
	if len(stats) == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		sum := 0.0
		count := 0
		for _, s := range stats {
			if s.degenerate {
				// Mirrors the degenerate z-score: a constant zero for
				// every row, present or not.
				count++
				continue
			}
			v := s.col.Float(i)
			if !v.Valid {
				continue
			}
			sum += s.direction * (v.Value - s.mean) / s.std
			count++
		}
		if count > 0 {
			out[i] = dataset.FloatFrom(sum / float64(count))
		}
	}
	return out
}

// meanStd returns the mean and sample standard deviation over present
// values. count is the number of present values; std is 0 when count
// is below two.
func meanStd(values []dataset.Float) (mean, std float64, count int) {
	sum := 0.0
	for _, v := range values {
		if v.Valid {
			sum += v.Value
			count++
		}
	}
	if count == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(count)
	if count < 2 {
		return mean, 0, count
	}
	ss := 0.0
	for _, v := range values {
		if v.Valid {
			d := v.Value - mean
			ss += d * d
		}
	}
	std = math.Sqrt(ss / float64(count-1))
	return mean, std, count
}

// formatRounded renders a float rounded to two decimals with at least
// one fractional digit, e.g. 2 -> "2.0", 2.345 -> "2.35".
func formatRounded(v float64) string {
	rounded := math.Round(v*100) / 100
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// numericCell reads a cell numerically regardless of column kind,
// coercing text the same way the coercion stage does.
func numericCell(col *dataset.Column, i int) dataset.Float {
	if col.Kind() == dataset.KindFloat {
		return col.Float(i)
	}
	return CoerceCell(col.Text(i))
}

func setFloats(t *dataset.Table, name string, values []dataset.Float) error {
	if t.Has(name) {
		return t.ReplaceFloats(name, values)
	}
	return t.AddFloatColumn(name, values)
}

func setTexts(t *dataset.Table, name string, values []string) error {
	if t.Has(name) {
		return t.ReplaceTexts(name, values)
	}
	return t.AddTextColumn(name, values)
}
