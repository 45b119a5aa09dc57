package config

import (
	"time"

	"engineatlas/pkg/contracts"
)

// Application constants for the EngineAtlas system.
const (
	// Application Info
	AppName    = "EngineAtlas"
	AppVersion = contracts.Version

	// Dataset
	DefaultDatasetFileName = "cars_engines.csv"
	DatasetFileGlob        = "*.csv"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout = 30 * time.Second
	WikipediaTimeout   = 10 * time.Second
	PipelineTimeout    = 5 * time.Minute

	// Wikipedia image lookup
	WikipediaBaseURL   = "https://en.wikipedia.org/w/api.php"
	WikipediaUserAgent = "EngineAtlas/1.0 (https://example.com)"
	WikipediaCacheTTL  = 24 * time.Hour

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultExportsDir = "data/exports"
	DefaultCacheDir   = "data/cache"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"

	// Clustering bounds offered over the API
	ClusterDefaultK = 4
	ClusterMinK     = 2
	ClusterMaxK     = 10

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// API Endpoints (internal)
	APIBasePath       = "/api"
	DatasetEndpoint   = "/api/dataset"
	ClustersEndpoint  = "/api/clusters"
	AnalyticsEndpoint = "/api/analytics"
	EnginesEndpoint   = "/api/engines"
	ImagesEndpoint    = "/api/images"
	ExportEndpoint    = "/api/export"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"

	// Error Messages
	ErrDatasetMissing = "Dataset file not found. Place the engine CSV under data/ or set ATLAS_DATASET_PATH."
	ErrClusterKRange  = "Requested cluster count is outside the supported range."

	// Success Messages
	MsgDatasetReloaded  = "Dataset reloaded and re-cleaned successfully."
	MsgOperationSuccess = "Operation completed successfully."
)

// Feature Flags - compile-time configuration
const (
	FeatureWebSocketEnabled    = true
	FeatureMetricsEnabled      = true
	FeatureHealthCheckEnabled  = true
	FeatureRateLimitingEnabled = true
	FeatureImageLookupEnabled  = true
	FeatureDebugLoggingEnabled = false
	FeatureMockDataEnabled     = false
)

// GetFeatureFlag returns the value of a feature flag.
func GetFeatureFlag(flag string) bool {
	switch flag {
	case "websocket":
		return FeatureWebSocketEnabled
	case "metrics":
		return FeatureMetricsEnabled
	case "health_check":
		return FeatureHealthCheckEnabled
	case "rate_limiting":
		return FeatureRateLimitingEnabled
	case "image_lookup":
		return FeatureImageLookupEnabled
	case "debug_logging":
		return FeatureDebugLoggingEnabled
	case "mock_data":
		return FeatureMockDataEnabled
	default:
		return false
	}
}
