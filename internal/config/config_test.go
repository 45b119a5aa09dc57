package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, ",", cfg.Dataset.Delimiter)
	assert.True(t, cfg.Dataset.CacheEnabled)
	assert.Empty(t, cfg.Dataset.Path)

	assert.Equal(t, 4, cfg.Cluster.DefaultK)
	assert.Equal(t, 2, cfg.Cluster.MinK)
	assert.Equal(t, 10, cfg.Cluster.MaxK)

	assert.True(t, cfg.Wikipedia.Enabled)
	assert.Equal(t, WikipediaBaseURL, cfg.Wikipedia.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Wikipedia.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Wikipedia.CacheTTL)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Security.RateLimit.Enabled)

	assert.Equal(t, "development", cfg.Observability.Environment)
	assert.True(t, cfg.Observability.EnableTracing)
	assert.True(t, cfg.Observability.EnableMetrics)
	assert.Equal(t, "stdout", cfg.Observability.TraceExporter)
	assert.Equal(t, "prometheus", cfg.Observability.MetricExporter)
	assert.Equal(t, 1.0, cfg.Observability.SampleRatio)
}

func TestLoadFrom(t *testing.T) {
	t.Run("no file keeps defaults", func(t *testing.T) {
		cfg, err := LoadFrom("")
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 4, cfg.Cluster.DefaultK)
	})

	t.Run("file overlays defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  port: 9191
dataset:
  path: /srv/engines.csv
  delimiter: ";"
cluster:
  default_k: 5
`)
		cfg, err := LoadFrom(path)
		require.NoError(t, err)

		assert.Equal(t, 9191, cfg.Server.Port)
		assert.Equal(t, "/srv/engines.csv", cfg.Dataset.Path)
		assert.Equal(t, ";", cfg.Dataset.Delimiter)
		assert.Equal(t, 5, cfg.Cluster.DefaultK)

		// Untouched sections keep their defaults.
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 2, cfg.Cluster.MinK)
		assert.True(t, cfg.Wikipedia.Enabled)
	})

	t.Run("environment beats the file", func(t *testing.T) {
		t.Setenv("ATLAS_SERVER_PORT", "7070")
		t.Setenv("ATLAS_DATASET_PATH", "/env/engines.csv")
		t.Setenv("ATLAS_LOGGING_LEVEL", "debug")
		t.Setenv("ATLAS_OBSERVABILITY_SAMPLE_RATIO", "0.5")

		path := writeConfigFile(t, `
server:
  port: 9191
dataset:
  path: /file/engines.csv
`)
		cfg, err := LoadFrom(path)
		require.NoError(t, err)

		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, "/env/engines.csv", cfg.Dataset.Path)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 0.5, cfg.Observability.SampleRatio)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config from file")
	})
}

func TestLoadFrom_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "negative port",
			yaml:    "server:\n  port: -1\n",
			wantErr: "invalid server port",
		},
		{
			name:    "port above range",
			yaml:    "server:\n  port: 99999\n",
			wantErr: "invalid server port",
		},
		{
			name:    "negative read timeout",
			yaml:    "server:\n  read_timeout: -5s\n",
			wantErr: "read timeout must be positive",
		},
		{
			name:    "multi rune delimiter",
			yaml:    "dataset:\n  delimiter: \"ab\"\n",
			wantErr: "delimiter must be a single rune",
		},
		{
			name:    "min_k below two",
			yaml:    "cluster:\n  min_k: 1\n",
			wantErr: "min_k must be at least 2",
		},
		{
			name:    "max_k below min_k",
			yaml:    "cluster:\n  min_k: 6\n  max_k: 5\n  default_k: 6\n",
			wantErr: "max_k",
		},
		{
			name:    "default_k outside bounds",
			yaml:    "cluster:\n  default_k: 11\n",
			wantErr: "default_k 11 outside",
		},
		{
			name:    "wikipedia enabled without base url",
			yaml:    "wikipedia:\n  enabled: true\n  base_url: \"\"\n",
			wantErr: "base_url must be set",
		},
		{
			name:    "unknown trace exporter",
			yaml:    "observability:\n  trace_exporter: jaeger\n",
			wantErr: "unsupported trace exporter",
		},
		{
			name:    "unknown metric exporter",
			yaml:    "observability:\n  metric_exporter: statsd\n",
			wantErr: "unsupported metric exporter",
		},
		{
			name:    "sample ratio above one",
			yaml:    "observability:\n  sample_ratio: 1.5\n",
			wantErr: "sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfigFile(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NormalizesLogging(t *testing.T) {
	cfg, err := LoadFrom(writeConfigFile(t, `
logging:
  format: text
  output: stderr
  file_path: ""
`))
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "logs/app.log", cfg.Logging.FilePath)
}

func TestConfig_DelimiterRune(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ',', cfg.DelimiterRune())

	cfg.Dataset.Delimiter = ";"
	assert.Equal(t, ';', cfg.DelimiterRune())
}

func TestConfig_DatasetPath(t *testing.T) {
	cfg := Default()
	cfg.Dataset.Path = "/explicit/engines.csv"
	assert.Equal(t, "/explicit/engines.csv", cfg.DatasetPath())

	cfg.Dataset.Path = ""
	got := cfg.DatasetPath()
	assert.Equal(t, DefaultDatasetFileName, filepath.Base(got))
}
