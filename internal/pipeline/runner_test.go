package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engineatlas/internal/dataset"
)

type fakeStage struct {
	id   string
	err  error
	ran  bool
	drop bool
}

func (s *fakeStage) ID() string   { return s.id }
func (s *fakeStage) Name() string { return s.id }

func (s *fakeStage) Run(_ context.Context, tbl *dataset.Table) (*dataset.Table, error) {
	s.ran = true
	if s.err != nil {
		return nil, s.err
	}
	if s.drop {
		return tbl.FilterRows(func(i int) bool { return i > 0 }), nil
	}
	return tbl.Clone(), nil
}

func testTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl := dataset.NewTable()
	require.NoError(t, tbl.AddTextColumn("make", []string{"a", "b", "c"}))
	return tbl
}

func TestRunnerRunsStagesInOrder(t *testing.T) {
	s1 := &fakeStage{id: "one"}
	s2 := &fakeStage{id: "two", drop: true}
	r := NewRunner(slog.Default())

	var updates []Progress
	r.SetProgressFunc(func(p Progress) { updates = append(updates, p) })

	out, states, err := r.Run(context.Background(), "run-1", testTable(t), s1, s2)
	require.NoError(t, err)

	assert.True(t, s1.ran)
	assert.True(t, s2.ran)
	assert.Equal(t, 2, out.NumRows())

	require.Len(t, states, 2)
	assert.Equal(t, StatusCompleted, states[0].Status)
	assert.Equal(t, StatusCompleted, states[1].Status)
	assert.Equal(t, 3, states[1].RowsIn)
	assert.Equal(t, 2, states[1].RowsOut)

	// Initial update plus one per stage.
	require.Len(t, updates, 3)
	assert.Equal(t, 0, updates[0].Completed)
	assert.Equal(t, 2, updates[2].Completed)
	assert.Equal(t, "run-1", updates[2].RunID)
}

func TestRunnerStageFailureSkipsRest(t *testing.T) {
	boom := errors.New("bad header")
	s1 := &fakeStage{id: "one", err: boom}
	s2 := &fakeStage{id: "two"}
	r := NewRunner(slog.Default())

	_, states, err := r.Run(context.Background(), "run-2", testTable(t), s1, s2)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.False(t, s2.ran)
	assert.Equal(t, StatusFailed, states[0].Status)
	assert.Equal(t, StatusSkipped, states[1].Status)
	assert.Equal(t, "bad header", states[0].Error)
}

func TestRunnerHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s1 := &fakeStage{id: "one"}
	r := NewRunner(slog.Default())

	_, _, err := r.Run(ctx, "run-3", testTable(t), s1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s1.ran)
}
