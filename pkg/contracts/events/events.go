// Package events contains event contract definitions for the
// websocket channel between the engine atlas server and the
// dashboard.
package events

import "time"

// MessageType defines the type of websocket message
type MessageType string

const (
	// TypeConnection acknowledges a fresh client connection.
	TypeConnection MessageType = "connection"

	// TypePipeline carries cleaning pipeline stage progress while a
	// dataset load runs. Subtype names the stage, action is one of
	// running, completed or failed.
	TypePipeline MessageType = "pipeline"

	// TypeDataset announces dataset lifecycle transitions. Subtype
	// "reload" with action completed or failed wraps up a reload.
	TypeDataset MessageType = "dataset"

	// TypeRefresh hints the dashboard to refetch views after the
	// canonical table changed.
	TypeRefresh MessageType = "data_update"

	// TypeError carries a structured server-side error.
	TypeError MessageType = "error"
)

// Message is the envelope for every event pushed over the websocket.
// Subtype and Action qualify Type the way the hub's BroadcastUpdate
// arguments do.
type Message struct {
	Type      MessageType `json:"type"`
	Subtype   string      `json:"subtype,omitempty"`
	Action    string      `json:"action,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// PipelineProgress is the payload of a TypePipeline message. It
// mirrors the progress the cleaning pipeline reports per stage.
type PipelineProgress struct {
	RunID     string          `json:"run_id"`
	Stage     string          `json:"stage"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Failed    bool            `json:"failed"`
	Stages    []StageSnapshot `json:"stages"`
}

// StageSnapshot is one stage's state inside a PipelineProgress.
type StageSnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	RowsIn     int    `json:"rows_in"`
	RowsOut    int    `json:"rows_out"`
	DurationNS int64  `json:"duration_ns"`
	Error      string `json:"error,omitempty"`
}

// ReloadOutcome is the payload of a TypeDataset reload completion.
type ReloadOutcome struct {
	Path      string    `json:"path"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	FromCache bool      `json:"from_cache"`
	LoadedAt  time.Time `json:"loaded_at"`
}
