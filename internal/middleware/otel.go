package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"engineatlas/internal/infrastructure"
)

// tracerName identifies spans opened by this package.
const tracerName = "engineatlas/middleware"

// Telemetry instruments requests with a server span and the shared
// instrument set. Request logging stays with StructuredLogger; this
// middleware feeds only the tracer and the meter.
type Telemetry struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewTelemetry builds the instrumentation middleware from the
// initialized providers. Providers without a tracer (trace exporter
// "none") degrade to no-op spans instead of failing.
func NewTelemetry(providers *infrastructure.OTelProviders) (*Telemetry, error) {
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	tracer := providers.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(tracerName)
	}
	return &Telemetry{tracer: tracer, metrics: metrics}, nil
}

// Metrics exposes the instrument set so BusinessMetricsMiddleware can
// share it instead of creating a second one.
func (t *Telemetry) Metrics() *infrastructure.BusinessMetrics {
	return t.metrics
}

// Handler opens a server span around each request and feeds the HTTP
// instruments. The span starts under the bare method name and is
// renamed with chi's route pattern once routing has happened, which
// keeps span names low-cardinality for parameterised paths.
func (t *Telemetry) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := t.tracer.Start(ctx, r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPathKey.String(r.URL.Path),
				semconv.ServerAddressKey.String(r.Host),
				semconv.UserAgentOriginalKey.String(r.UserAgent()),
				// RealIP runs earlier in the chain, so RemoteAddr
				// already holds the client address.
				semconv.ClientAddressKey.String(r.RemoteAddr),
			),
		)
		defer span.End()

		ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())

		t.metrics.HTTPActiveRequests.Add(ctx, 1)
		defer t.metrics.HTTPActiveRequests.Add(ctx, -1)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)

		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			semconv.HTTPRouteKey.String(route),
			semconv.HTTPResponseStatusCodeKey.Int(status),
			semconv.HTTPResponseBodySizeKey.Int64(int64(ww.BytesWritten())),
		)
		// Client errors are normal traffic from the server's side;
		// only 5xx marks the span failed.
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.Int("status_code", status),
		)
		t.metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
		t.metrics.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), attrs)
	})
}

// routePattern returns chi's matched pattern, or the raw path when the
// request never matched a route. The routing context is mutated in
// place, so the pattern is complete only after the handler returned.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// WebSocketTraceMiddleware spans the upgrade handshake so dashboard
// connects show up in traces. The connection outlives the span.
func WebSocketTraceMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := otel.Tracer(tracerName).Start(r.Context(), "websocket.upgrade",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(r.URL.Path),
					attribute.String("client.origin", r.Header.Get("Origin")),
				),
			)
			defer span.End()

			traceID := span.SpanContext().TraceID().String()
			ctx = infrastructure.WithTraceID(ctx, traceID)

			logger.InfoContext(ctx, "websocket upgrade requested",
				slog.String("origin", r.Header.Get("Origin")),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("trace_id", traceID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ReloadTraceHandler opens a span around a dataset reload trigger so
// reloads are attributable to their origin in traces.
func ReloadTraceHandler(trigger string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer(tracerName).Start(r.Context(), "dataset.reload."+trigger,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attribute.String("reload.trigger", trigger)),
		)
		defer span.End()

		handler(w, r.WithContext(ctx))
	}
}

// businessMetricsKey is the context key BusinessMetricsMiddleware
// stores the instrument set under.
type businessMetricsKey struct{}

// BusinessMetricsMiddleware puts the shared instrument set in the
// request context so handlers can record domain metrics without
// holding their own reference.
func BusinessMetricsMiddleware(metrics *infrastructure.BusinessMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), businessMetricsKey{}, metrics)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BusinessMetricsFrom returns the instruments stored by
// BusinessMetricsMiddleware, or nil outside its chain. The Record
// helpers below tolerate nil, so handler code calls them
// unconditionally.
func BusinessMetricsFrom(ctx context.Context) *infrastructure.BusinessMetrics {
	m, _ := ctx.Value(businessMetricsKey{}).(*infrastructure.BusinessMetrics)
	return m
}

// RecordDatasetLoadMetrics records one load-and-clean run. The row
// gauge only moves on success; a failed run leaves the last good
// count standing.
func RecordDatasetLoadMetrics(ctx context.Context, source string, rows int, duration time.Duration, success bool) {
	if m := BusinessMetricsFrom(ctx); m != nil {
		status := "success"
		if !success {
			status = "failure"
		}
		attrs := metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("status", status),
		)
		m.DatasetLoadsTotal.Add(ctx, 1, attrs)
		m.DatasetLoadDuration.Record(ctx, duration.Seconds(), attrs)
		if success {
			m.DatasetRows.Record(ctx, int64(rows), metric.WithAttributes(attribute.String("source", source)))
		}
	}

	infrastructure.AddSpanEvent(ctx, "dataset.load.completed", map[string]interface{}{
		"source":   source,
		"rows":     rows,
		"duration": duration.Seconds(),
		"success":  success,
	})
}

// RecordDatasetCacheMetrics records a dataset cache lookup outcome.
func RecordDatasetCacheMetrics(ctx context.Context, hit bool) {
	m := BusinessMetricsFrom(ctx)
	if m == nil {
		return
	}
	if hit {
		m.DatasetCacheHits.Add(ctx, 1)
	} else {
		m.DatasetCacheMisses.Add(ctx, 1)
	}
}

// RecordClusterRunMetrics records one clustering run.
func RecordClusterRunMetrics(ctx context.Context, k int, duration time.Duration, success bool) {
	if m := BusinessMetricsFrom(ctx); m != nil {
		status := "success"
		if !success {
			status = "failure"
		}
		attrs := metric.WithAttributes(
			attribute.Int("k", k),
			attribute.String("status", status),
		)
		m.ClusterRunsTotal.Add(ctx, 1, attrs)
		m.ClusterRunDuration.Record(ctx, duration.Seconds(), attrs)
		if !success {
			m.ClusterRunErrors.Add(ctx, 1, metric.WithAttributes(attribute.Int("k", k)))
		}
	}

	infrastructure.AddSpanEvent(ctx, "cluster.run.completed", map[string]interface{}{
		"k":        k,
		"duration": duration.Seconds(),
		"success":  success,
	})
}

// RecordImageLookupMetrics records one Wikipedia image lookup.
func RecordImageLookupMetrics(ctx context.Context, source string, duration time.Duration, found bool) {
	m := BusinessMetricsFrom(ctx)
	if m == nil {
		return
	}

	status := "found"
	if !found {
		status = "miss"
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	)
	m.ImageLookupsTotal.Add(ctx, 1, attrs)
	m.ImageLookupDuration.Record(ctx, duration.Seconds(), attrs)
	if !found {
		m.ImageLookupFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
}

// RecordSystemError counts an internal failure by type and component.
func RecordSystemError(ctx context.Context, errorType, component string) {
	m := BusinessMetricsFrom(ctx)
	if m == nil {
		return
	}
	m.SystemErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", errorType),
		attribute.String("component", component),
	))
}
