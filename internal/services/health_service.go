package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"engineatlas/internal/config"
	"engineatlas/pkg/contracts"
)

// ClientCounter reports connected websocket clients. The hub
// implements it.
type ClientCounter interface {
	ClientCount() int
}

// HealthService answers liveness, readiness and statistics queries.
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	paths     *config.Paths
	datasets  *DatasetService
	images    *ImageService
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   *RuntimeInfo             `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// RuntimeInfo is the process snapshot attached to liveness responses.
type RuntimeInfo struct {
	UptimeSeconds float64 `json:"uptime"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
}

// ServiceHealth is one dependency's readiness inside a HealthStatus.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats is the statistics snapshot for the dashboard footer.
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	DatasetRows      int     `json:"dataset_rows"`
	DatasetColumns   int     `json:"dataset_columns"`
	DataFiles        int     `json:"data_files"`
	DataSizeBytes    int64   `json:"data_size_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService wires the health checks against the dataset and
// image services and the websocket hub. hub may be nil.
func NewHealthService(version string, paths *config.Paths, datasets *DatasetService, images *ImageService, hub ClientCounter, logger *slog.Logger) *HealthService {
	return NewHealthServiceWithBuildInfo(version, "", "", paths, datasets, images, hub, logger)
}

// NewHealthServiceWithBuildInfo additionally carries build metadata
// stamped at link time.
func NewHealthServiceWithBuildInfo(version, buildTime, buildID string, paths *config.Paths, datasets *DatasetService, images *ImageService, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("health service initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		buildID:   buildID,
		paths:     paths,
		datasets:  datasets,
		images:    images,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns the overall health status.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the system can serve data requests.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	services := map[string]ServiceHealth{
		"dataset":   hs.checkDatasetHealth(),
		"websocket": hs.checkWebSocketHealth(),
		"images":    hs.checkImageHealth(),
	}

	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  services,
	}
	for _, sh := range services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck reports that the process is running.
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: &RuntimeInfo{
			UptimeSeconds: time.Since(hs.startTime).Seconds(),
			GoVersion:     runtime.Version(),
			Goroutines:    runtime.NumGoroutine(),
		},
	}
}

// Version returns version and build information.
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":        hs.version,
		"api_version":    contracts.APIVersion,
		"schema_version": contracts.SchemaVersion,
		"go_version":     runtime.Version(),
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"uptime":         time.Since(hs.startTime).Seconds(),
		"start_time":     hs.startTime.Format(time.RFC3339),
		"current_time":   time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

// Stats returns the statistics snapshot.
func (hs *HealthService) Stats(ctx context.Context) (SystemStats, error) {
	var dataFiles int
	var dataSize int64
	filepath.Walk(hs.paths.DataDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			dataFiles++
			dataSize += info.Size()
		}
		return nil
	})

	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		DataFiles:     dataFiles,
		DataSizeBytes: dataSize,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.datasets != nil && hs.datasets.Loaded() {
		if info, err := hs.datasets.Info(ctx); err == nil {
			stats.DatasetRows = info.Rows
			stats.DatasetColumns = info.Columns
		}
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
	}
	return stats, nil
}

// checkDatasetHealth checks that a dataset is resident or at least
// present on disk.
func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.datasets == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "dataset service not initialized",
		}
	}
	if hs.datasets.Loaded() {
		return ServiceHealth{
			Status:  "ready",
			Message: "dataset loaded",
		}
	}
	path := hs.datasets.cfg.DatasetPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("dataset file not found: %s", path),
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "dataset present, not loaded yet",
	}
}

// checkWebSocketHealth checks the broadcast hub.
func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "websocket hub not initialized",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkImageHealth reports the image lookup switch. A disabled lookup
// is still ready; it is a feature toggle, not a failure.
func (hs *HealthService) checkImageHealth() ServiceHealth {
	if hs.images == nil || !hs.images.Enabled() {
		return ServiceHealth{
			Status:  "ready",
			Message: "image lookup disabled",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "image lookup enabled",
	}
}
