package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is one sample of process resource usage.
type RuntimeStats struct {
	Goroutines      int64
	HeapBytes       int64
	TotalAllocBytes int64
	SysBytes        int64
	GCRuns          uint32
	LastGCPause     time.Duration
	CPUs            int
	Uptime          time.Duration
	Taken           time.Time
}

// ReadRuntimeStats samples the Go runtime. start anchors the uptime.
func ReadRuntimeStats(start time.Time) RuntimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return RuntimeStats{
		Goroutines:      int64(runtime.NumGoroutine()),
		HeapBytes:       int64(ms.Alloc),
		TotalAllocBytes: int64(ms.TotalAlloc),
		SysBytes:        int64(ms.Sys),
		GCRuns:          ms.NumGC,
		// PauseNs is a ring buffer; (NumGC+255)%256 is the newest entry.
		LastGCPause: time.Duration(ms.PauseNs[(ms.NumGC+255)%256]),
		CPUs:        runtime.NumCPU(),
		Uptime:      time.Since(start),
		Taken:       time.Now(),
	}
}

// LogValue renders the sample as one structured group, so a snapshot
// can ride along on any log line as a single attribute.
func (s RuntimeStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("goroutines", s.Goroutines),
		slog.Int64("heap_mb", s.HeapBytes/(1<<20)),
		slog.Int64("sys_mb", s.SysBytes/(1<<20)),
		slog.Uint64("gc_runs", uint64(s.GCRuns)),
		slog.Float64("uptime_s", s.Uptime.Seconds()),
	)
}

// RuntimeMetrics publishes runtime resource usage through the meter.
// Every instrument is observable: the SDK reads the values during
// collection, which under the Prometheus exporter means on scrape, so
// there is no sampling goroutine and no interval to tune.
type RuntimeMetrics struct {
	start time.Time
	reg   metric.Registration
}

// StartRuntimeMetrics registers the runtime instruments on meter.
// Stop unregisters them again.
func StartRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	rm := &RuntimeMetrics{start: time.Now()}

	b := instrumentBuilder{meter: meter}
	goroutines := b.observableGauge("system_goroutines", "Number of active goroutines", "")
	heap := b.observableGauge("system_memory_heap_bytes", "Heap memory in use", "By")
	allocated := b.observableCounter("system_memory_allocated_bytes", "Cumulative bytes allocated by the runtime", "By")
	sys := b.observableGauge("system_memory_sys_bytes", "Memory obtained from the OS", "By")
	gcRuns := b.observableCounter("system_gc_runs", "Completed garbage collection cycles", "")
	gcPause := b.observableFloatGauge("system_gc_last_pause_seconds", "Pause of the most recent garbage collection", "s")
	cpus := b.observableGauge("system_cpu_count", "Number of logical CPUs", "")
	uptime := b.observableFloatGauge("system_process_uptime_seconds", "Process uptime", "s")
	if b.err != nil {
		return nil, b.err
	}

	reg, err := meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			s := ReadRuntimeStats(rm.start)
			o.ObserveInt64(goroutines, s.Goroutines)
			o.ObserveInt64(heap, s.HeapBytes)
			o.ObserveInt64(allocated, s.TotalAllocBytes)
			o.ObserveInt64(sys, s.SysBytes)
			o.ObserveInt64(gcRuns, int64(s.GCRuns))
			if s.GCRuns > 0 {
				o.ObserveFloat64(gcPause, s.LastGCPause.Seconds())
			}
			o.ObserveInt64(cpus, int64(s.CPUs))
			o.ObserveFloat64(uptime, s.Uptime.Seconds())
			return nil
		},
		goroutines, heap, allocated, sys, gcRuns, gcPause, cpus, uptime,
	)
	if err != nil {
		return nil, fmt.Errorf("register runtime metrics callback: %w", err)
	}
	rm.reg = reg

	return rm, nil
}

// Stats samples the runtime directly, without going through the meter.
func (rm *RuntimeMetrics) Stats() RuntimeStats {
	return ReadRuntimeStats(rm.start)
}

// Stop unregisters the instruments from the meter.
func (rm *RuntimeMetrics) Stop() error {
	if rm.reg == nil {
		return nil
	}
	return rm.reg.Unregister()
}

func (b *instrumentBuilder) observableGauge(name, desc, unit string) metric.Int64ObservableGauge {
	opts := []metric.Int64ObservableGaugeOption{metric.WithDescription(desc)}
	if unit != "" {
		opts = append(opts, metric.WithUnit(unit))
	}
	g, err := b.meter.Int64ObservableGauge(name, opts...)
	b.record(name, err)
	return g
}

func (b *instrumentBuilder) observableCounter(name, desc, unit string) metric.Int64ObservableCounter {
	opts := []metric.Int64ObservableCounterOption{metric.WithDescription(desc)}
	if unit != "" {
		opts = append(opts, metric.WithUnit(unit))
	}
	c, err := b.meter.Int64ObservableCounter(name, opts...)
	b.record(name, err)
	return c
}

func (b *instrumentBuilder) observableFloatGauge(name, desc, unit string) metric.Float64ObservableGauge {
	opts := []metric.Float64ObservableGaugeOption{metric.WithDescription(desc)}
	if unit != "" {
		opts = append(opts, metric.WithUnit(unit))
	}
	g, err := b.meter.Float64ObservableGauge(name, opts...)
	b.record(name, err)
	return g
}
