package middleware

import (
	"encoding/json"
	"net/http"
)

// Problem is the minimal RFC 7807 document this package writes when a
// middleware answers a request itself, before any handler runs. The
// richer handler-level errors live in internal/errors.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	// Trace carries the request id so a client report can be matched to
	// the server log.
	Trace string `json:"trace_id,omitempty"`
}

// Render writes the document with the problem+json media type.
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}

// statusProblems carries the type URI and title for each status a
// middleware can produce.
var statusProblems = map[int]struct {
	ptype string
	title string
}{
	http.StatusBadRequest:          {"/errors/bad-request", "Bad Request"},
	http.StatusUnauthorized:        {"/errors/unauthorized", "Unauthorized"},
	http.StatusForbidden:           {"/errors/forbidden", "Forbidden"},
	http.StatusNotFound:            {"/errors/not-found", "Not Found"},
	http.StatusMethodNotAllowed:    {"/errors/method-not-allowed", "Method Not Allowed"},
	http.StatusConflict:            {"/errors/conflict", "Conflict"},
	http.StatusTooManyRequests:     {"/errors/rate-limit-exceeded", "Too Many Requests"},
	http.StatusInternalServerError: {"/errors/internal", "Internal Server Error"},
	http.StatusServiceUnavailable:  {"/errors/service-unavailable", "Service Unavailable"},
	http.StatusGatewayTimeout:      {"/errors/timeout", "Gateway Timeout"},
}

// ProblemFromStatus builds a Problem for an HTTP status. Statuses
// outside the known set keep their standard text under an unknown
// type URI.
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	sp, ok := statusProblems[status]
	if !ok {
		sp.ptype = "/errors/unknown"
		sp.title = http.StatusText(status)
	}

	return Problem{
		Type:   sp.ptype,
		Title:  sp.title,
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}
