package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"engineatlas/internal/config"
)

const (
	ServiceName    = "engineatlas"
	ServiceVersion = config.AppVersion
	MeterName      = "engineatlas"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders bundles the tracing and metrics stacks the rest of the
// application works against. Tracer and Meter are nil when the matching
// signal is switched off.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	Tracer         trace.Tracer
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	// PrometheusRegistry backs the metrics endpoint. Components with
	// native Prometheus collectors register here too.
	PrometheusRegistry *promclient.Registry
	PrometheusHTTP     http.Handler
	Logger             *slog.Logger
}

// OTelConfigFrom maps the observability section of the application
// configuration onto an OTelConfig.
func OTelConfigFrom(obs config.ObservabilityConfig) *OTelConfig {
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    obs.Environment,
		TraceExporter:  obs.TraceExporter,
		MetricExporter: obs.MetricExporter,
		EnableMetrics:  obs.EnableMetrics,
		EnableTracing:  obs.EnableTracing,
		SampleRatio:    obs.SampleRatio,
	}
}

// DefaultOTelConfig returns the configuration used when no
// observability section was loaded: stdout traces, a Prometheus
// metrics endpoint, full sampling.
func DefaultOTelConfig() *OTelConfig {
	return OTelConfigFrom(config.Default().Observability)
}

// InitializeOTel initializes tracing and metrics providers and
// installs them globally.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
		attribute.String("service.instance.id", instanceID()),
	)

	p := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		if err := p.setupTracing(cfg, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if cfg.EnableMetrics {
		if err := p.setupMetrics(cfg, res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("opentelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return p, nil
}

// setupTracing builds the tracer provider and installs it globally.
// The "none" exporter leaves p.Tracer nil.
func (p *OTelProviders) setupTracing(cfg *OTelConfig, res *resource.Resource) error {
	var exporter sdktrace.SpanExporter
	switch cfg.TraceExporter {
	case "stdout":
		var err error
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	p.TracerProvider = tp
	p.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	p.Logger.Info("tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

// setupMetrics builds the meter provider around a dedicated Prometheus
// registry and installs it globally. The "none" exporter leaves
// p.Meter nil.
func (p *OTelProviders) setupMetrics(cfg *OTelConfig, res *resource.Resource) error {
	switch cfg.MetricExporter {
	case "prometheus":
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	// A dedicated registry keeps repeated initializations (tests,
	// embedded use) from colliding in the global one.
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	p.PrometheusRegistry = registry
	p.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	p.MeterProvider = mp
	p.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)

	p.Logger.Info("metrics initialized", slog.String("exporter", cfg.MetricExporter))
	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Dataset metrics
	DatasetLoadsTotal   metric.Int64Counter
	DatasetLoadDuration metric.Float64Histogram
	DatasetRows         metric.Int64Gauge
	DatasetCacheHits    metric.Int64Counter
	DatasetCacheMisses  metric.Int64Counter

	// Clustering metrics
	ClusterRunsTotal   metric.Int64Counter
	ClusterRunDuration metric.Float64Histogram
	ClusterRunErrors   metric.Int64Counter

	// Image lookup metrics
	ImageLookupsTotal   metric.Int64Counter
	ImageLookupDuration metric.Float64Histogram
	ImageLookupFailures metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
}

// instrumentBuilder collects instrument creation errors so the metric
// lists below read flat. The first error wins.
type instrumentBuilder struct {
	meter metric.Meter
	err   error
}

func (b *instrumentBuilder) record(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("instrument %s: %w", name, err)
	}
}

func (b *instrumentBuilder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.record(name, err)
	return c
}

func (b *instrumentBuilder) upDownCounter(name, desc string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	b.record(name, err)
	return c
}

func (b *instrumentBuilder) gauge(name, desc string) metric.Int64Gauge {
	g, err := b.meter.Int64Gauge(name, metric.WithDescription(desc))
	b.record(name, err)
	return g
}

func (b *instrumentBuilder) durationHistogram(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	b.record(name, err)
	return h
}

// CreateBusinessMetrics creates the application metric instruments.
// A nil meter (metric exporter "none") yields no-op instruments, so
// callers record unconditionally.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(MeterName)
	}
	b := instrumentBuilder{meter: meter}

	m := &BusinessMetrics{
		HTTPRequestsTotal:   b.counter("http_requests_total", "Total number of HTTP requests"),
		HTTPRequestDuration: b.durationHistogram("http_request_duration_seconds", "HTTP request duration in seconds"),
		HTTPActiveRequests:  b.upDownCounter("http_active_requests", "Number of active HTTP requests"),

		DatasetLoadsTotal:   b.counter("dataset_loads_total", "Total number of dataset load and clean runs"),
		DatasetLoadDuration: b.durationHistogram("dataset_load_duration_seconds", "Dataset load and clean duration in seconds"),
		DatasetRows:         b.gauge("dataset_rows", "Rows in the currently loaded canonical dataset"),
		DatasetCacheHits:    b.counter("dataset_cache_hits_total", "Total number of dataset cache hits"),
		DatasetCacheMisses:  b.counter("dataset_cache_misses_total", "Total number of dataset cache misses"),

		ClusterRunsTotal:   b.counter("cluster_runs_total", "Total number of clustering runs"),
		ClusterRunDuration: b.durationHistogram("cluster_run_duration_seconds", "Clustering run duration in seconds"),
		ClusterRunErrors:   b.counter("cluster_run_errors_total", "Total number of failed clustering runs"),

		ImageLookupsTotal:   b.counter("image_lookups_total", "Total number of engine image lookups"),
		ImageLookupDuration: b.durationHistogram("image_lookup_duration_seconds", "Engine image lookup duration in seconds"),
		ImageLookupFailures: b.counter("image_lookup_failures_total", "Total number of failed engine image lookups"),

		SystemErrors: b.counter("system_errors_total", "Total number of system errors"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// Shutdown flushes and stops whichever providers were started.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown: %w", err)
	}

	p.Logger.InfoContext(ctx, "opentelemetry shutdown complete")
	return nil
}

// instanceID distinguishes replicas sharing a hostname.
func instanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

// TraceIDFromContext extracts the OTel trace ID from context for log
// correlation.
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// AddSpanEvent adds an event to the current span with structured
// attributes.
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, anyAttribute(k, v))
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records err on the current span and marks the span
// failed. The error handler routes every surfaced API error through
// here so traces carry the failure detail.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func anyAttribute(k string, v interface{}) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(k, val)
	case int:
		return attribute.Int(k, val)
	case int64:
		return attribute.Int64(k, val)
	case float64:
		return attribute.Float64(k, val)
	case bool:
		return attribute.Bool(k, val)
	default:
		return attribute.String(k, fmt.Sprintf("%v", val))
	}
}

// RecordDatasetLoad records metrics for a dataset load and clean run.
func RecordDatasetLoad(ctx context.Context, metrics *BusinessMetrics, rows int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))

	metrics.DatasetLoadsTotal.Add(ctx, 1, attrs)
	metrics.DatasetLoadDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		metrics.DatasetRows.Record(ctx, int64(rows))
	}
}

// RecordClusterRun records metrics for one clustering run.
func RecordClusterRun(ctx context.Context, metrics *BusinessMetrics, k int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Int("k", k))
	metrics.ClusterRunsTotal.Add(ctx, 1, attrs)
	metrics.ClusterRunDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		metrics.ClusterRunErrors.Add(ctx, 1, attrs)
	}
}

// RecordImageLookup records metrics for one engine image lookup.
func RecordImageLookup(ctx context.Context, metrics *BusinessMetrics, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	metrics.ImageLookupsTotal.Add(ctx, 1)
	metrics.ImageLookupDuration.Record(ctx, duration.Seconds())
	if err != nil {
		metrics.ImageLookupFailures.Add(ctx, 1)
	}
}

// RecordCacheLookup records a dataset cache hit or miss.
func RecordCacheLookup(ctx context.Context, metrics *BusinessMetrics, hit bool) {
	if metrics == nil {
		return
	}

	if hit {
		metrics.DatasetCacheHits.Add(ctx, 1)
	} else {
		metrics.DatasetCacheMisses.Add(ctx, 1)
	}
}
