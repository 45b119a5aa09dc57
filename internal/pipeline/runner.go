package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"engineatlas/internal/dataset"
)

// Progress describes a run's state after each stage transition. Fired
// once when the run starts, once per stage completion or failure, and
// once when the run finishes.
type Progress struct {
	RunID     string          `json:"run_id"`
	Stage     string          `json:"stage"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Failed    bool            `json:"failed"`
	Stages    []StageSnapshot `json:"stages"`
}

// ProgressFunc receives progress updates during a run. Callbacks run
// on the runner's goroutine and should return quickly.
type ProgressFunc func(Progress)

// Runner executes stages in strict sequence, feeding each stage the
// previous output. A stage failure aborts the run; remaining stages
// are marked skipped.
type Runner struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	progress ProgressFunc
}

// NewRunner returns a runner logging to the given logger.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger: logger.With(slog.String("component", "pipeline")),
		tracer: otel.Tracer("engineatlas/pipeline"),
	}
}

// SetProgressFunc registers the progress callback. Must be called
// before Run.
func (r *Runner) SetProgressFunc(fn ProgressFunc) { r.progress = fn }

// Run executes the stages against the initial table and returns the
// final table along with the per-stage states.
func (r *Runner) Run(ctx context.Context, runID string, initial *dataset.Table, stages ...Stage) (*dataset.Table, []StageSnapshot, error) {
	states := make([]*StageState, len(stages))
	for i, s := range stages {
		states[i] = NewStageState(s.ID(), s.Name())
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("stages", len(stages)),
		))
	defer span.End()

	start := time.Now()
	r.logger.InfoContext(ctx, "cleaning run started",
		slog.String("run_id", runID),
		slog.Int("rows", initial.NumRows()),
		slog.Int("stages", len(stages)))
	r.notify(runID, "", 0, len(stages), false, states)

	current := initial
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			states[i].fail(err)
			r.markSkipped(states[i+1:])
			r.notify(runID, stage.ID(), i, len(stages), true, states)
			return nil, snapshots(states), fmt.Errorf("run %s cancelled before stage %s: %w", runID, stage.ID(), err)
		}

		out, err := r.runStage(ctx, stage, states[i], current)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.markSkipped(states[i+1:])
			r.notify(runID, stage.ID(), i, len(stages), true, states)
			return nil, snapshots(states), fmt.Errorf("stage %s failed: %w", stage.ID(), err)
		}
		current = out
		r.notify(runID, stage.ID(), i+1, len(stages), false, states)
	}

	r.logger.InfoContext(ctx, "cleaning run completed",
		slog.String("run_id", runID),
		slog.Int("rows", current.NumRows()),
		slog.Duration("duration", time.Since(start)))
	return current, snapshots(states), nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, state *StageState, in *dataset.Table) (*dataset.Table, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.stage."+stage.ID(),
		trace.WithAttributes(attribute.Int("rows_in", in.NumRows())))
	defer span.End()

	state.start(in.NumRows())
	start := time.Now()
	r.logger.DebugContext(ctx, "stage started", slog.String("stage", stage.ID()))

	out, err := stage.Run(ctx, in)
	if err != nil {
		state.fail(err)
		r.logger.ErrorContext(ctx, "stage failed",
			slog.String("stage", stage.ID()),
			slog.String("error", err.Error()))
		return nil, err
	}

	state.complete(out.NumRows())
	span.SetAttributes(attribute.Int("rows_out", out.NumRows()))
	r.logger.InfoContext(ctx, "stage completed",
		slog.String("stage", stage.ID()),
		slog.Int("rows_out", out.NumRows()),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (r *Runner) markSkipped(rest []*StageState) {
	for _, s := range rest {
		s.skip()
	}
}

func (r *Runner) notify(runID, stageID string, completed, total int, failed bool, states []*StageState) {
	if r.progress == nil {
		return
	}
	r.progress(Progress{
		RunID:     runID,
		Stage:     stageID,
		Completed: completed,
		Total:     total,
		Failed:    failed,
		Stages:    snapshots(states),
	})
}

func snapshots(states []*StageState) []StageSnapshot {
	out := make([]StageSnapshot, len(states))
	for i, s := range states {
		out[i] = s.Snapshot()
	}
	return out
}
