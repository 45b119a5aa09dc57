package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" envconfig:"SERVER"`
	Security      SecurityConfig      `yaml:"security" envconfig:"SECURITY"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Dataset       DatasetConfig       `yaml:"dataset" envconfig:"DATASET"`
	Cluster       ClusterConfig       `yaml:"cluster" envconfig:"CLUSTER"`
	Wikipedia     WikipediaConfig     `yaml:"wikipedia" envconfig:"WIKIPEDIA"`
	WebSocket     WebSocketConfig     `yaml:"websocket" envconfig:"WEBSOCKET"`
	Observability ObservabilityConfig `yaml:"observability" envconfig:"OBSERVABILITY"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port             int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// DatasetConfig locates the raw engine CSV and controls how it is
// loaded.
type DatasetConfig struct {
	// Path points at the raw CSV. Empty means the default file under
	// the data directory.
	Path         string `yaml:"path" envconfig:"PATH"`
	Delimiter    string `yaml:"delimiter" envconfig:"DELIMITER"`
	CacheEnabled bool   `yaml:"cache_enabled" envconfig:"CACHE_ENABLED"`
}

// ClusterConfig bounds the k-means runs offered over the API.
type ClusterConfig struct {
	DefaultK int `yaml:"default_k" envconfig:"DEFAULTK"`
	MinK     int `yaml:"min_k" envconfig:"MINK"`
	MaxK     int `yaml:"max_k" envconfig:"MAXK"`
}

// WikipediaConfig configures the engine image lookup client.
type WikipediaConfig struct {
	Enabled   bool          `yaml:"enabled" envconfig:"ENABLED"`
	BaseURL   string        `yaml:"base_url" envconfig:"BASE_URL"`
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	CacheTTL  time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
}

// WebSocketConfig contains WebSocket configuration.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// ObservabilityConfig controls tracing and the metrics exporter.
type ObservabilityConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path. An empty path
// skips the file layer.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process("ATLAS", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file values onto cfg. Absent keys keep
// their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// findConfigFile returns the first config file found in the common
// locations, or "" when none exists.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// DatasetPath returns the configured dataset path, falling back to the
// default file under the resolved data directory.
func (c *Config) DatasetPath() string {
	if c.Dataset.Path != "" {
		return c.Dataset.Path
	}
	paths, err := GetPaths()
	if err != nil {
		return filepath.Join(DefaultDataDir, DefaultDatasetFileName)
	}
	return paths.DatasetFile
}

// DelimiterRune returns the configured CSV delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Dataset.Delimiter)
	return r
}

// validate checks ranges and normalizes the logging section.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if utf8.RuneCountInString(c.Dataset.Delimiter) != 1 {
		return fmt.Errorf("dataset delimiter must be a single rune, got %q", c.Dataset.Delimiter)
	}

	if c.Cluster.MinK < 2 {
		return fmt.Errorf("cluster min_k must be at least 2, got %d", c.Cluster.MinK)
	}
	if c.Cluster.MaxK < c.Cluster.MinK {
		return fmt.Errorf("cluster max_k %d below min_k %d", c.Cluster.MaxK, c.Cluster.MinK)
	}
	if c.Cluster.DefaultK < c.Cluster.MinK || c.Cluster.DefaultK > c.Cluster.MaxK {
		return fmt.Errorf("cluster default_k %d outside [%d, %d]", c.Cluster.DefaultK, c.Cluster.MinK, c.Cluster.MaxK)
	}

	if c.Wikipedia.Enabled {
		if c.Wikipedia.BaseURL == "" {
			return fmt.Errorf("wikipedia base_url must be set when lookups are enabled")
		}
		if c.Wikipedia.Timeout <= 0 {
			return fmt.Errorf("wikipedia timeout must be positive")
		}
	}

	switch c.Observability.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Observability.TraceExporter)
	}
	switch c.Observability.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Observability.MetricExporter)
	}
	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("observability sample_ratio must be within [0, 1], got %g", c.Observability.SampleRatio)
	}

	// Structured logs ship as JSON; anything else is coerced.
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: PipelineTimeout,
			MaxHeaderBytes:   1 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:       DefaultLogLevel,
			Format:      DefaultLogFormat,
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: true,
		},
		Dataset: DatasetConfig{
			Delimiter:    ",",
			CacheEnabled: true,
		},
		Cluster: ClusterConfig{
			DefaultK: ClusterDefaultK,
			MinK:     ClusterMinK,
			MaxK:     ClusterMaxK,
		},
		Wikipedia: WikipediaConfig{
			Enabled:   true,
			BaseURL:   WikipediaBaseURL,
			UserAgent: WikipediaUserAgent,
			Timeout:   WikipediaTimeout,
			CacheTTL:  WikipediaCacheTTL,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Observability: ObservabilityConfig{
			Environment:    "development",
			EnableTracing:  true,
			EnableMetrics:  true,
			TraceExporter:  "stdout",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
