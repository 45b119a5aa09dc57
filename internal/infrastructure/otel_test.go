package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"engineatlas/internal/config"
)

func testOTelLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, testOTelLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusRegistry)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testOTelLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx := context.Background()

	tracer := otel.Tracer("atlas.test")
	ctx, span := tracer.Start(ctx, "pipeline.clean")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	ctx = WithTraceID(ctx, traceID)
	assert.Equal(t, traceID, GetTraceID(ctx))
}

func TestBusinessMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testOTelLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.NotNil(t, metrics.HTTPRequestsTotal)
	assert.NotNil(t, metrics.HTTPRequestDuration)
	assert.NotNil(t, metrics.HTTPActiveRequests)

	assert.NotNil(t, metrics.DatasetLoadsTotal)
	assert.NotNil(t, metrics.DatasetLoadDuration)
	assert.NotNil(t, metrics.DatasetRows)
	assert.NotNil(t, metrics.DatasetCacheHits)
	assert.NotNil(t, metrics.DatasetCacheMisses)

	assert.NotNil(t, metrics.ClusterRunsTotal)
	assert.NotNil(t, metrics.ClusterRunDuration)
	assert.NotNil(t, metrics.ClusterRunErrors)

	assert.NotNil(t, metrics.ImageLookupsTotal)
	assert.NotNil(t, metrics.SystemErrors)
}

func TestRecordHelpers(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testOTelLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()

	// Recording against real and nil metrics must both be safe.
	RecordDatasetLoad(ctx, metrics, 5000, 120*time.Millisecond, nil)
	RecordDatasetLoad(ctx, metrics, 0, 10*time.Millisecond, assert.AnError)
	RecordClusterRun(ctx, metrics, 4, 30*time.Millisecond, nil)
	RecordClusterRun(ctx, metrics, 12, time.Millisecond, assert.AnError)
	RecordImageLookup(ctx, metrics, 80*time.Millisecond, nil)
	RecordImageLookup(ctx, metrics, 80*time.Millisecond, assert.AnError)
	RecordCacheLookup(ctx, metrics, true)
	RecordCacheLookup(ctx, metrics, false)

	RecordDatasetLoad(ctx, nil, 1, time.Second, nil)
	RecordClusterRun(ctx, nil, 4, time.Second, nil)
	RecordImageLookup(ctx, nil, time.Second, nil)
	RecordCacheLookup(ctx, nil, true)
}

func TestSpanOperations(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testOTelLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx := context.Background()
	tracer := otel.Tracer("atlas.test")
	ctx, span := tracer.Start(ctx, "cluster.compute")
	defer span.End()

	AddSpanEvent(ctx, "stage.completed", map[string]interface{}{
		"string_attr": "coercer",
		"int_attr":    42,
		"float_attr":  3.14,
		"bool_attr":   true,
		"other_attr":  struct{ X int }{1},
	})

	RecordError(ctx, assert.AnError)

	assert.True(t, span.IsRecording())

	// Both helpers must be no-ops against a context with no span.
	AddSpanEvent(context.Background(), "ignored", nil)
	RecordError(context.Background(), assert.AnError)
}

func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testOTelLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.ObservabilityConfig{
		Environment:    "production",
		EnableTracing:  false,
		EnableMetrics:  true,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    0.25,
	})

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, ServiceVersion, cfg.ServiceVersion)
	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.EnableTracing)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, "none", cfg.TraceExporter)
	assert.Equal(t, 0.25, cfg.SampleRatio)
}

func TestInitializeOTel_ExporterModes(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*OTelConfig)
		wantTracer bool
		wantMeter  bool
	}{
		{
			name:       "stdout traces with prometheus metrics",
			mutate:     func(*OTelConfig) {},
			wantTracer: true,
			wantMeter:  true,
		},
		{
			name:       "tracing switched off",
			mutate:     func(c *OTelConfig) { c.EnableTracing = false },
			wantTracer: false,
			wantMeter:  true,
		},
		{
			name:       "trace exporter none",
			mutate:     func(c *OTelConfig) { c.TraceExporter = "none" },
			wantTracer: false,
			wantMeter:  true,
		},
		{
			name:       "metrics switched off",
			mutate:     func(c *OTelConfig) { c.EnableMetrics = false },
			wantTracer: true,
			wantMeter:  false,
		},
		{
			name: "everything off",
			mutate: func(c *OTelConfig) {
				c.EnableTracing = false
				c.MetricExporter = "none"
			},
			wantTracer: false,
			wantMeter:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultOTelConfig()
			tt.mutate(cfg)

			providers, err := InitializeOTel(cfg, testOTelLogger())
			require.NoError(t, err)
			require.NotNil(t, providers)

			if tt.wantTracer {
				assert.NotNil(t, providers.Tracer)
			} else {
				assert.Nil(t, providers.Tracer)
			}
			if tt.wantMeter {
				assert.NotNil(t, providers.Meter)
			} else {
				assert.Nil(t, providers.Meter)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, providers.Shutdown(ctx))
		})
	}

	t.Run("unknown trace exporter rejected", func(t *testing.T) {
		cfg := DefaultOTelConfig()
		cfg.TraceExporter = "jaeger"

		_, err := InitializeOTel(cfg, testOTelLogger())
		assert.Error(t, err)
	})

	t.Run("unknown metric exporter rejected", func(t *testing.T) {
		cfg := DefaultOTelConfig()
		cfg.MetricExporter = "statsd"

		_, err := InitializeOTel(cfg, testOTelLogger())
		assert.Error(t, err)
	})
}

func TestTracePropagation(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testOTelLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	tracer := otel.Tracer("propagation-test")

	ctx := context.Background()
	ctx, parentSpan := tracer.Start(ctx, "parent-operation")
	defer parentSpan.End()

	ctx, childSpan := tracer.Start(ctx, "child-operation")
	defer childSpan.End()

	assert.Equal(t, parentSpan.SpanContext().TraceID(), childSpan.SpanContext().TraceID())
	assert.NotEqual(t, parentSpan.SpanContext().SpanID(), childSpan.SpanContext().SpanID())
}

func TestRuntimeMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testOTelLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	rm, err := StartRuntimeMetrics(providers.Meter)
	require.NoError(t, err)

	stats := rm.Stats()
	assert.Greater(t, stats.Goroutines, int64(0))
	assert.Greater(t, stats.HeapBytes, int64(0))
	assert.Greater(t, stats.CPUs, 0)
	assert.False(t, stats.Taken.IsZero())

	// Observable instruments surface through the exporter on scrape.
	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "system_goroutines")

	assert.NoError(t, rm.Stop())
}
