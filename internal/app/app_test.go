package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engineatlas/internal/config"
)

// rawEnginesCSV is a small slice of the raw dataset, enough for the
// pipeline to produce a canonical table.
const rawEnginesCSV = "Make,Modle,Trim,Engine type,Cylinder layout,Number of cylinders,Engine hp,Year from,Acceleration 0 - 100 km/h (),Mixed fuel consumption per 100 km l,CO2 emissions g/km\n" +
	"Toyota,Corolla,1.8,Gasoline,Inline,4,140,2005,9.5,7.1,165\n" +
	"Toyota,Camry,2.5,Gasoline,Inline,4,181,2012,8.1,7.8,180\n" +
	"BMW,M3,Base,Gasoline,Inline,6,431,2014,4.1,8.8,204\n" +
	"BMW,320i,Base,Gasoline,Inline,4,184,2012,7.3,6.0,140\n" +
	"Tesla,Model S,P85,Electric,,,,2013,4.4,,\n" +
	"Honda,Civic,Type R,Gasoline,Inline,4,306,2017,5.7,7.7,176\n"

// setupTestEnvironment points the application at a throwaway dataset
// and quiet logging. Returns the dataset path for fixtures.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	datasetPath := filepath.Join(t.TempDir(), "engines.csv")

	t.Setenv("ATLAS_SERVER_PORT", "18321")
	t.Setenv("ATLAS_LOGGING_LEVEL", "error")
	t.Setenv("ATLAS_LOGGING_OUTPUT", "console")
	t.Setenv("ATLAS_DATASET_PATH", datasetPath)
	t.Setenv("ATLAS_WIKIPEDIA_ENABLED", "false")

	return datasetPath
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	app, err := NewApplication()
	require.NoError(t, err)
	t.Cleanup(app.Hub.Stop)
	return app
}

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestNewApplication(t *testing.T) {
	tests := []struct {
		name          string
		setupEnv      func(t *testing.T)
		wantErr       bool
		errorContains string
	}{
		{
			name:     "successful initialization",
			setupEnv: func(t *testing.T) {},
		},
		{
			name: "invalid port fails validation",
			setupEnv: func(t *testing.T) {
				t.Setenv("ATLAS_SERVER_PORT", "-1")
			},
			wantErr:       true,
			errorContains: "config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestEnvironment(t)
			tt.setupEnv(t)

			app, err := NewApplication()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
				assert.Nil(t, app)
				return
			}

			require.NoError(t, err)
			t.Cleanup(app.Hub.Stop)

			assert.NotNil(t, app.Config)
			assert.NotNil(t, app.Paths)
			assert.NotNil(t, app.Logger)
			assert.NotNil(t, app.Router)
			assert.NotNil(t, app.Server)
			assert.NotNil(t, app.OTelProviders)
			assert.NotNil(t, app.Hub)
			assert.NotNil(t, app.Datasets)
			assert.NotNil(t, app.Clusters)
			assert.NotNil(t, app.Analytics)
			assert.NotNil(t, app.Images)
			assert.NotNil(t, app.Exports)
			assert.NotNil(t, app.Health)
		})
	}
}

func TestApplication_Routes(t *testing.T) {
	datasetPath := setupTestEnvironment(t)
	require.NoError(t, os.WriteFile(datasetPath, []byte(rawEnginesCSV), 0644))

	app := newTestApplication(t)

	do := func(method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("root descriptor", func(t *testing.T) {
		rec := do(http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Engine Atlas")
		assert.Contains(t, rec.Body.String(), "/api/health")
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("health endpoints", func(t *testing.T) {
		for _, target := range []string{"/api/health", "/api/health/live"} {
			rec := do(http.MethodGet, target)
			assert.Equal(t, http.StatusOK, rec.Code, target)
		}

		rec := do(http.MethodGet, "/api/version")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), VERSION)
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		rec := do(http.MethodGet, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("dataset routes answer 503 before load", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/dataset")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	})

	t.Run("reload then read", func(t *testing.T) {
		rec := do(http.MethodPost, "/api/dataset/reload")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(http.MethodGet, "/api/dataset")
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Status string `json:"status"`
			Data   struct {
				Rows int `json:"rows"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "success", envelope.Status)
		assert.Equal(t, 6, envelope.Data.Rows)

		rec = do(http.MethodGet, "/api/analytics/overview")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = do(http.MethodGet, "/api/dataset/records?makes=BMW")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "BMW")
	})

	t.Run("image lookups disabled", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/images?title=BMW+M3")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("security headers applied", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/health")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
}

func TestApplication_WebSocket(t *testing.T) {
	setupTestEnvironment(t)
	app := newTestApplication(t)

	server := httptest.NewServer(app.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"type":"connection"`)
}

func TestApplication_getCORSConfig(t *testing.T) {
	setupTestEnvironment(t)

	tests := []struct {
		name           string
		development    bool
		allowedOrigins []string
		wantContains   []string
		wantAbsent     []string
	}{
		{
			name:         "development allows dashboard dev server",
			development:  true,
			wantContains: []string{"http://localhost:3000", "http://localhost:8080"},
		},
		{
			name:           "production uses configured origins",
			development:    false,
			allowedOrigins: []string{"https://atlas.example.com"},
			wantContains:   []string{"http://localhost:8080", "https://atlas.example.com"},
			wantAbsent:     []string{"http://localhost:3000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Development = tt.development
			cfg.Security.AllowedOrigins = tt.allowedOrigins

			app := &Application{Config: cfg, Logger: createTestLogger()}
			got := app.getCORSConfig()

			for _, origin := range tt.wantContains {
				assert.Contains(t, got.AllowedOrigins, origin)
			}
			for _, origin := range tt.wantAbsent {
				assert.NotContains(t, got.AllowedOrigins, origin)
			}
			assert.Contains(t, got.ExposedHeaders, "Content-Disposition")
		})
	}
}

func TestApplication_isDevelopmentMode(t *testing.T) {
	setupTestEnvironment(t)

	cfg := config.Default()
	cfg.Logging.Development = false
	app := &Application{Config: cfg, Logger: createTestLogger()}

	assert.False(t, app.isDevelopmentMode())

	t.Setenv("GO_ENV", "development")
	assert.True(t, app.isDevelopmentMode())

	t.Setenv("GO_ENV", "")
	cfg.Logging.Development = true
	assert.True(t, app.isDevelopmentMode())
}

func TestApplication_createServer(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 9100

	app := &Application{Config: cfg, Logger: createTestLogger()}
	app.createServer()

	require.NotNil(t, app.Server)
	assert.Equal(t, ":9100", app.Server.Addr)
	assert.Equal(t, cfg.Server.ReadTimeout, app.Server.ReadTimeout)
	assert.Equal(t, cfg.Server.WriteTimeout, app.Server.WriteTimeout)
	assert.Equal(t, cfg.Server.IdleTimeout, app.Server.IdleTimeout)
}

func TestApplication_performStartupChecks(t *testing.T) {
	base := t.TempDir()
	paths := config.NewPaths(base)
	require.NoError(t, paths.EnsureDirectories())

	cfg := config.Default()
	cfg.Dataset.Path = filepath.Join(base, "data", "engines.csv")

	app := &Application{Config: cfg, Paths: paths, Logger: createTestLogger()}

	err := app.performStartupChecks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset file not found")

	require.NoError(t, os.WriteFile(cfg.Dataset.Path, []byte(rawEnginesCSV), 0644))
	assert.NoError(t, app.performStartupChecks(context.Background()))
}

func TestApplication_StartStop(t *testing.T) {
	datasetPath := setupTestEnvironment(t)
	require.NoError(t, os.WriteFile(datasetPath, []byte(rawEnginesCSV), 0644))
	t.Setenv("ATLAS_SERVER_PORT", "18497")

	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel))

	// Wait for the listener, then hit it over real TCP.
	baseURL := fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/api/health/live")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	assert.NoError(t, app.Stop(context.Background()))
}
