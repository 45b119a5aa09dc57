// Package middleware provides the HTTP middleware chain for the API
// server: request identity, structured request logging, panic
// recovery, rate limiting, per-route timeouts and CORS. Every error
// a middleware writes itself is an RFC 7807 problem document.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"engineatlas/internal/infrastructure"
)

type contextKey string

// RequestIDKey is the context key the request ID is stored under.
const RequestIDKey contextKey = "request-id"

const headerRequestID = "X-Request-ID"

// RequestID tags every request with an ID and echoes it in the
// response. An inbound X-Request-ID is kept so a client retry and the
// server logs share one ID; otherwise a fresh UUID is issued. The ID
// doubles as the trace ID until the tracer replaces it, and is also
// stored under chi's key so chimw.GetReqID finds it in handlers.
// Must run first in the chain.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		ctx = context.WithValue(ctx, chimw.RequestIDKey, id)
		ctx = infrastructure.WithTraceID(ctx, id)
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetReqID returns the request ID stored by RequestID, or "".
func GetReqID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetRequestID returns the request ID, falling back to the trace ID
// when the request never passed through RequestID.
func GetRequestID(ctx context.Context) string {
	if id := GetReqID(ctx); id != "" {
		return id
	}
	return infrastructure.GetTraceID(ctx)
}

// StructuredLogger logs one line at the start of each request and one
// at the end with status, size and duration. Runs after RequestID and
// RealIP so both lines carry the trace ID and the real client address.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			reqLogger := logger
			if traceID := GetRequestID(ctx); traceID != "" {
				reqLogger = logger.With(slog.String("trace_id", traceID))
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger.InfoContext(ctx, "request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()))

			// Deferred so the completion line survives a panic below.
			defer func() {
				reqLogger.InfoContext(ctx, "request completed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Recoverer turns handler panics into a logged 500 problem document.
// http.ErrAbortHandler passes through untouched, as the server treats
// it as a deliberate abort.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				ctx := r.Context()
				logger.ErrorContext(ctx, "panic recovered",
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				RecordSystemError(ctx, "panic", "http")

				problem := ProblemFromStatus(http.StatusInternalServerError,
					"An unexpected error occurred", GetRequestID(ctx))
				problem.Render(w, r)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter applies a single token bucket across all clients. The
// server sits behind the dashboard, so a shared budget is enough; per
// client buckets would only matter with many independent consumers.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter allows rps sustained requests with the given burst.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Handler rejects requests over budget with 429 and a Retry-After.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		rl.logger.WarnContext(ctx, "rate limit exceeded",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		w.Header().Set("Retry-After", "60")
		problem := ProblemFromStatus(http.StatusTooManyRequests,
			"Too many requests; retry after 60 seconds", GetRequestID(ctx))
		problem.Render(w, r)
	})
}

// timeoutWriter drops handler writes that arrive after the deadline
// response has gone out, so the two writers never interleave.
type timeoutWriter struct {
	http.ResponseWriter

	mu       sync.Mutex
	timedOut bool
	wrote    bool
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return
	}
	tw.wrote = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return len(b), nil
	}
	tw.wrote = true
	return tw.ResponseWriter.Write(b)
}

// markTimeout claims the response for the timeout error. It fails when
// the handler already wrote, in which case the response stands as is.
func (tw *timeoutWriter) markTimeout() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.wrote {
		return false
	}
	tw.timedOut = true
	return true
}

// Timeout cancels the request context after d and answers 504 if the
// handler has not produced a response by then. A panic inside the
// handler goroutine is re-raised on the request goroutine so Recoverer
// still sees it.
func Timeout(d time.Duration, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
						return
					}
					close(done)
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
			case <-ctx.Done():
				if !tw.markTimeout() {
					return
				}
				logger.ErrorContext(r.Context(), "request timeout",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Duration("timeout", d))

				problem := ProblemFromStatus(http.StatusGatewayTimeout,
					"The request took too long to process", GetRequestID(r.Context()))
				problem.Render(w, r)
			}
		})
	}
}

// CORSConfig holds the cross-origin policy for the API.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           int
	AllowCredentials bool
	Logger           *slog.Logger
}

// originAllowed reports whether origin clears the configured list. An
// empty list and a "*" entry both allow everything.
func (c CORSConfig) originAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// CORS applies the cross-origin policy and answers preflights with 204.
func CORS(config CORSConfig) func(next http.Handler) http.Handler {
	if len(config.AllowedMethods) == 0 {
		config.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(config.AllowedHeaders) == 0 {
		config.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", headerRequestID}
	}
	if config.MaxAge == 0 {
		config.MaxAge = 300
	}

	// None of these values vary per request, so join them once here.
	allowMethods := strings.Join(config.AllowedMethods, ", ")
	allowHeaders := strings.Join(config.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)
	wildcard := len(config.AllowedOrigins) > 0 && config.AllowedOrigins[0] == "*"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := config.originAllowed(origin)

			h := w.Header()
			switch {
			case allowed && origin != "":
				h.Set("Access-Control-Allow-Origin", origin)
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			if exposeHeaders != "" {
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
			if config.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Max-Age", maxAge)

			if r.Method == http.MethodOptions {
				if config.Logger != nil {
					config.Logger.DebugContext(r.Context(), "CORS preflight",
						slog.String("origin", origin),
						slog.Bool("allowed", allowed))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Compress re-exports chi's compression middleware so callers stay on
// one middleware package.
func Compress(level int) func(next http.Handler) http.Handler {
	return chimw.Compress(level)
}

// RealIP re-exports chi's RealIP.
func RealIP(next http.Handler) http.Handler {
	return chimw.RealIP(next)
}
