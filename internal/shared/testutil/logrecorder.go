package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured slog record with its attributes flattened
// into a map. Attributes bound through Logger.With appear alongside the
// call-site attributes; grouped keys are dotted ("http.status").
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder is a slog.Handler that keeps every record in memory so
// tests can assert on what a component logged. Handlers derived through
// With and WithGroup share the same buffer, so one recorder observes a
// whole logger tree. Safe for concurrent use.
type LogRecorder struct {
	store  *recordStore
	prefix string
	bound  []slog.Attr
}

type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
	t       *testing.T
}

// NewLogRecorder creates an empty recorder. Records are echoed through
// t.Logf so failed tests show what was actually logged.
func NewLogRecorder(t *testing.T) *LogRecorder {
	return &LogRecorder{store: &recordStore{t: t}}
}

// NewTestLogger creates a logger whose output is captured by the
// returned recorder.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogRecorder) {
	rec := NewLogRecorder(t)
	return slog.New(rec), rec
}

// Enabled reports true for every level; tests want it all.
func (h *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.bound))
	for _, a := range h.bound {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.qualify(a.Key)] = a.Value.Resolve().Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	t := h.store.t
	h.store.mu.Unlock()

	if t != nil {
		t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler. Bound attributes land in every
// later record, recorded into the shared buffer.
func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := *h
	child.bound = make([]slog.Attr, 0, len(h.bound)+len(attrs))
	child.bound = append(child.bound, h.bound...)
	for _, a := range attrs {
		child.bound = append(child.bound, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &child
}

// WithGroup implements slog.Handler by dotting the group name onto
// later attribute keys.
func (h *LogRecorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	child := *h
	child.prefix = h.qualify(name)
	return &child
}

func (h *LogRecorder) qualify(key string) string {
	if h.prefix == "" {
		return key
	}
	return h.prefix + "." + key
}

// Records returns a copy of everything captured so far.
func (h *LogRecorder) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := make([]LogRecord, len(h.store.records))
	copy(out, h.store.records)
	return out
}

// GetRecordsByLevel returns the captured records at exactly level.
func (h *LogRecorder) GetRecordsByLevel(level slog.Level) []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	var out []LogRecord
	for _, r := range h.store.records {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// ContainsMessage reports whether any captured message contains msg.
func (h *LogRecorder) ContainsMessage(msg string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for _, r := range h.store.records {
		if strings.Contains(r.Message, msg) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any captured record carries key with
// exactly value.
func (h *LogRecorder) ContainsAttr(key string, value any) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for _, r := range h.store.records {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}
