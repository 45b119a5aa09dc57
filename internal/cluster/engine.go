package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"engineatlas/internal/dataset"
)

// FeatureColumns are the clustering inputs. Their order fixes the
// meaning of every feature vector, centroid and label rule in this
// package.
var FeatureColumns = []string{
	dataset.ColEngineHP,
	dataset.ColAcceleration,
	dataset.ColMixedFuel,
	dataset.ColNumberOfCylinders,
}

// Feature vector indices, aligned with FeatureColumns.
const (
	featureHP = iota
	featureAccel
	featureFuel
	featureCylinders
)

const (
	// DefaultK is the cluster count when the caller does not choose one.
	DefaultK = 4

	randomSeed     = 42
	maxIterations  = 300
	convergenceTol = 1e-4
)

var (
	// ErrClusterCount reports a k below 1.
	ErrClusterCount = errors.New("invalid cluster count")
	// ErrTooFewRows reports fewer complete-feature rows than clusters.
	ErrTooFewRows = errors.New("not enough complete rows")
)

// Engine runs the clustering. The zero value is not usable; construct
// with NewEngine.
type Engine struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEngine returns an engine logging to the given logger.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger.With(slog.String("component", "cluster")),
		tracer: otel.Tracer("engineatlas/cluster"),
	}
}

// Compute clusters the rows of view that carry all four features and
// returns that subset augmented with cluster_id, pca_x, pca_y and
// cluster_name. The input table is never mutated. k below 1 or above
// the number of complete rows is an error.
func (e *Engine) Compute(ctx context.Context, view *dataset.Table, k int) (*dataset.Table, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: must be at least 1, got %d", ErrClusterCount, k)
	}

	ctx, span := e.tracer.Start(ctx, "cluster.compute",
		trace.WithAttributes(attribute.Int("k", k)))
	defer span.End()

	cols := make([]*dataset.Column, len(FeatureColumns))
	for i, name := range FeatureColumns {
		col, ok := view.Column(name)
		if !ok || col.Kind() != dataset.KindFloat {
			return nil, fmt.Errorf("feature column %s is missing or not numeric", name)
		}
		cols[i] = col
	}

	keep := completeRows(cols, view.NumRows())
	if k > len(keep) {
		return nil, fmt.Errorf("%w: cluster count %d exceeds the %d rows with complete features", ErrTooFewRows, k, len(keep))
	}

	matrix := make([][]float64, len(keep))
	for i, row := range keep {
		vec := make([]float64, len(cols))
		for j, col := range cols {
			vec[j] = col.Float(row).Value
		}
		matrix[i] = vec
	}
	standardized := standardize(matrix)

	start := time.Now()
	km := runKMeans(standardized, k, randomSeed, maxIterations, convergenceTol)
	scores, err := pcaScores(standardized, 2)
	if err != nil {
		return nil, fmt.Errorf("pca projection failed: %w", err)
	}

	keepSet := make(map[int]struct{}, len(keep))
	for _, row := range keep {
		keepSet[row] = struct{}{}
	}
	out := view.FilterRows(func(row int) bool {
		_, ok := keepSet[row]
		return ok
	})

	ids := make([]dataset.Float, len(keep))
	pcaX := make([]dataset.Float, len(keep))
	pcaY := make([]dataset.Float, len(keep))
	names := make([]string, len(keep))
	labels := make([]string, k)
	for c, centroid := range km.centroids {
		labels[c] = LabelCentroid(centroid)
	}
	for i := range keep {
		c := km.assignments[i]
		ids[i] = dataset.FloatFrom(float64(c))
		pcaX[i] = dataset.FloatFrom(scores[i][0])
		pcaY[i] = dataset.FloatFrom(scores[i][1])
		names[i] = labels[c]
	}

	if err := putFloats(out, dataset.ColClusterID, ids); err != nil {
		return nil, err
	}
	if err := putFloats(out, dataset.ColPCAX, pcaX); err != nil {
		return nil, err
	}
	if err := putFloats(out, dataset.ColPCAY, pcaY); err != nil {
		return nil, err
	}
	if err := putTexts(out, dataset.ColClusterName, names); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "clustering computed",
		slog.Int("k", k),
		slog.Int("rows_in", view.NumRows()),
		slog.Int("rows_clustered", len(keep)),
		slog.Int("iterations", km.iterations),
		slog.Duration("duration", time.Since(start)))
	span.SetAttributes(attribute.Int("rows_clustered", len(keep)))
	return out, nil
}

// completeRows returns the indices of rows where every column has a
// value, in ascending order.
func completeRows(cols []*dataset.Column, n int) []int {
	var keep []int
	for row := 0; row < n; row++ {
		complete := true
		for _, col := range cols {
			if !col.Float(row).Valid {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, row)
		}
	}
	return keep
}

// standardize centers each column on its mean and scales by its
// population standard deviation. A constant column keeps scale 1 so
// its standardized values are exactly zero.
func standardize(matrix [][]float64) [][]float64 {
	n := len(matrix)
	if n == 0 {
		return nil
	}
	d := len(matrix[0])

	means := make([]float64, d)
	for _, row := range matrix {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	stds := make([]float64, d)
	for _, row := range matrix {
		for j, v := range row {
			diff := v - means[j]
			stds[j] += diff * diff
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(n))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	out := make([][]float64, n)
	for i, row := range matrix {
		vec := make([]float64, d)
		for j, v := range row {
			vec[j] = (v - means[j]) / stds[j]
		}
		out[i] = vec
	}
	return out
}

func putFloats(t *dataset.Table, name string, values []dataset.Float) error {
	if t.Has(name) {
		return t.ReplaceFloats(name, values)
	}
	return t.AddFloatColumn(name, values)
}

func putTexts(t *dataset.Table, name string, values []string) error {
	if t.Has(name) {
		return t.ReplaceTexts(name, values)
	}
	return t.AddTextColumn(name, values)
}
