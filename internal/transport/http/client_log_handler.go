package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "engineatlas/internal/errors"
)

// Browser consoles can emit arbitrarily large payloads; both caps keep
// a misbehaving dashboard bundle from flooding the server log.
const (
	maxClientLogBody    = 64 << 10
	maxClientLogMessage = 2048
)

var clientLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ClientLogHandler forwards browser-side log entries from the
// dashboard into the server's structured log.
type ClientLogHandler struct {
	logger *slog.Logger
}

// NewClientLogHandler builds the sink; every entry it writes carries
// the client_log handler tag.
func NewClientLogHandler(logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{logger: logger.With(slog.String("handler", "client_log"))}
}

// LogRequest is one dashboard log entry.
type LogRequest struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty"`
}

// Handle processes POST /api/client-logs. Unknown levels fall back to
// info and oversized messages are truncated; the sink never rejects an
// entry it managed to parse.
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxClientLogBody)

	var req LogRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apierrors.WriteError(w, apierrors.NewValidationError("Invalid request format"))
		return
	}

	level, ok := clientLogLevels[req.Level]
	if !ok {
		level = slog.LevelInfo
	}

	msg := req.Message
	truncated := len(msg) > maxClientLogMessage
	if truncated {
		msg = msg[:maxClientLogMessage]
	}

	attrs := []slog.Attr{
		slog.String("client_source", req.Source),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	}
	if truncated {
		attrs = append(attrs, slog.Bool("truncated", true))
	}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}

	h.logger.LogAttrs(r.Context(), level, msg, attrs...)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}
