package pipeline

import (
	"context"
	"sync"
	"time"

	"engineatlas/internal/dataset"
)

// Stage is a single transformation in a cleaning run. Stages receive
// the previous stage's output and must not mutate it; they return a
// fresh table.
type Stage interface {
	// ID returns the stable machine identifier for this stage.
	ID() string

	// Name returns the human-readable stage name.
	Name() string

	// Run executes the transformation.
	Run(ctx context.Context, tbl *dataset.Table) (*dataset.Table, error)
}

// Status is the lifecycle state of a stage within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StageState is the runtime record of one stage in one run.
type StageState struct {
	mu        sync.RWMutex
	ID        string
	Name      string
	Status    Status
	StartedAt time.Time
	EndedAt   time.Time
	Err       error
	RowsIn    int
	RowsOut   int
}

// NewStageState returns a pending state for the given stage.
func NewStageState(id, name string) *StageState {
	return &StageState{ID: id, Name: name, Status: StatusPending}
}

func (s *StageState) start(rowsIn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusActive
	s.StartedAt = time.Now()
	s.RowsIn = rowsIn
}

func (s *StageState) complete(rowsOut int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusCompleted
	s.EndedAt = time.Now()
	s.RowsOut = rowsOut
}

func (s *StageState) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusFailed
	s.EndedAt = time.Now()
	s.Err = err
}

func (s *StageState) skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusSkipped
}

// Snapshot returns a copy safe to serialize.
func (s *StageState) Snapshot() StageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := StageSnapshot{
		ID:      s.ID,
		Name:    s.Name,
		Status:  s.Status,
		RowsIn:  s.RowsIn,
		RowsOut: s.RowsOut,
	}
	if !s.StartedAt.IsZero() && !s.EndedAt.IsZero() {
		snap.Duration = s.EndedAt.Sub(s.StartedAt)
	}
	if s.Err != nil {
		snap.Error = s.Err.Error()
	}
	return snap
}

// StageSnapshot is the immutable view of a stage state.
type StageSnapshot struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}
