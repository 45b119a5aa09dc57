package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"engineatlas/internal/analytics"
	"engineatlas/internal/cache"
	"engineatlas/internal/cluster"
	"engineatlas/internal/config"
	"engineatlas/internal/dataprocessing"
	apierrors "engineatlas/internal/errors"
	"engineatlas/internal/exporter"
	"engineatlas/internal/infrastructure"
	customMiddleware "engineatlas/internal/middleware"
	"engineatlas/internal/services"
	handlers "engineatlas/internal/transport/http"
	"engineatlas/internal/validation"
	ws "engineatlas/internal/websocket"
	"engineatlas/internal/wikimedia"
	"engineatlas/pkg/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

const (
	// VERSION is reported by the health endpoints and stamped into
	// startup logs.
	VERSION = config.AppVersion
	AppName = "Engine Atlas"
)

var (
	// BuildTime prefers the release stamp, falling back to process
	// start for unbadged dev builds.
	BuildTime = buildTimestamp()
	// BuildID is the stamped commit, or a synthetic identifier that
	// stays stable across restarts on the same day.
	BuildID = buildIdentifier()
)

func buildTimestamp() string {
	if contracts.BuildTime != "unknown" {
		return contracts.BuildTime
	}
	return time.Now().Format(time.RFC3339)
}

func buildIdentifier() string {
	if contracts.GitCommit != "unknown" {
		return contracts.GitCommit
	}
	h := sha256.New()
	h.Write([]byte(VERSION))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application is the composition root: configuration, the service
// graph, the router and the HTTP server.
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	RuntimeMetrics *infrastructure.RuntimeMetrics

	Hub       *ws.Hub
	Datasets  *services.DatasetService
	Clusters  *services.ClusterService
	Analytics *services.AnalyticsService
	Images    *services.ImageService
	Exports   *services.ExportService
	Health    *services.HealthService

	// allowedOrigins caches the CORS origin list for the WebSocket
	// upgrade check.
	allowedOrigins []string
}

// NewApplication builds a fully wired application from configuration
// and environment.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("build_id", BuildID))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	// Missing raw data is not fatal: the API answers 503 on data
	// routes until a reload finds the file.
	if !config.FileExists(cfg.DatasetPath()) {
		logger.Warn("raw dataset file not found",
			slog.String("path", cfg.DatasetPath()),
			slog.String("action", "place the engine CSV there, then POST /api/dataset/reload"))
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Observability), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	// Runtime gauges on /metrics. Meter is nil when the metric exporter
	// is disabled.
	if otelProviders.Meter != nil {
		rm, err := infrastructure.StartRuntimeMetrics(otelProviders.Meter)
		if err != nil {
			logger.Warn("runtime metrics unavailable", slog.String("error", err.Error()))
		} else {
			app.RuntimeMetrics = rm
		}
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the service graph bottom-up: hub, cleaning
// pipeline, dataset service, then everything that reads through it.
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.Hub = hub

	var pipelineMetrics *dataprocessing.Metrics
	if a.OTelProviders.PrometheusRegistry != nil {
		pipelineMetrics = dataprocessing.NewMetrics(a.OTelProviders.PrometheusRegistry)
	}

	pipe := dataprocessing.NewPipeline(a.Logger, pipelineMetrics)
	pipe.SetDelimiter(a.Config.DelimiterRune())

	a.Datasets = services.NewDatasetService(a.Config, pipe, cache.New(a.Logger), hub, a.Logger)

	analyzer := analytics.NewAnalyzer(a.Logger)
	a.Clusters = services.NewClusterService(a.Datasets, cluster.NewEngine(a.Logger), analyzer, a.Config.Cluster, a.Logger)
	a.Analytics = services.NewAnalyticsService(a.Datasets, analyzer, a.Logger)

	var imageClient services.ImageLookup
	if a.Config.Wikipedia.Enabled {
		imageClient = wikimedia.NewClient(a.Logger, wikimedia.Options{
			BaseURL:   a.Config.Wikipedia.BaseURL,
			UserAgent: a.Config.Wikipedia.UserAgent,
			Timeout:   a.Config.Wikipedia.Timeout,
			CacheTTL:  a.Config.Wikipedia.CacheTTL,
		})
	}
	a.Images = services.NewImageService(imageClient, a.Logger)

	a.Exports = services.NewExportService(a.Datasets, a.Clusters, analyzer, exporter.New(a.Logger), a.Logger)

	a.Health = services.NewHealthServiceWithBuildInfo(
		VERSION, BuildTime, BuildID,
		a.Paths, a.Datasets, a.Images, hub, a.Logger,
	)

	return nil
}

// setupRouter assembles the middleware chain and mounts every route
// group onto a fresh chi router.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that does not wrap the ResponseWriter, so it
	// cannot interfere with WebSocket upgrades.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	corsConfig := a.getCORSConfig()
	a.allowedOrigins = corsConfig.AllowedOrigins

	// WebSocket route: registered after the minimal middleware but
	// before the full group.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Everything else runs under the full chain:
	// RequestID → RealIP → OTel → metrics → logger → recoverer →
	// headers → CORS → rate limit.
	r.Group(func(r chi.Router) {
		telemetry, err := customMiddleware.NewTelemetry(a.OTelProviders)
		if err != nil {
			a.Logger.Error("telemetry middleware disabled", slog.String("error", err.Error()))
		} else {
			r.Use(telemetry.Handler)
			r.Use(customMiddleware.BusinessMetricsMiddleware(telemetry.Metrics()))
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		secureHeaders := customMiddleware.DefaultSecureHeaders()
		secureHeaders.DevMode = a.Config.Logging.Development
		r.Use(secureHeaders.Handler)
		r.Use(customMiddleware.CORS(corsConfig))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupStaticRoutes(r)
	})

	// Prometheus scrape endpoint stays outside the middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
		validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

		// Unknown API paths answer RFC 7807 like everything else, not
		// chi's plain-text default.
		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		// Body screening ahead of every handler: size and JSON syntax
		// first, then the content type for write requests.
		r.Use(validation.ValidateRequest)
		r.Use(validation.ContentType("application/json"))

		// Interactive endpoints under the standard timeout.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.Health, errorHandler)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
			r.Get("/stats", healthHandler.Stats)

			r.Mount("/clusters", handlers.NewClusterHandler(a.Clusters, validation, a.Logger, errorHandler).Routes())
			r.Mount("/analytics", handlers.NewAnalyticsHandler(a.Analytics, validation, a.Logger, errorHandler).Routes())
			r.Mount("/engines", handlers.NewEngineHandler(a.Analytics, validation, a.Logger, errorHandler).Routes())
			r.Mount("/images", handlers.NewImageHandler(a.Images, validation, a.Logger, errorHandler).Routes())

			r.Post("/logs", handlers.NewClientLogHandler(a.Logger).Handle)
		})

		// Pipeline-backed endpoints get the operation timeout: a
		// reload runs the full cleaning pipeline, a workbook export
		// renders every analytics sheet.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))

			r.Mount("/dataset", handlers.NewDatasetHandler(a.Datasets, validation, a.Logger, errorHandler).Routes())
			r.With(customMiddleware.AuditLog(a.Logger)).
				Mount("/export", handlers.NewExportHandler(a.Exports, validation, a.Logger, errorHandler).Routes())
		})
	})
}

// setupStaticRoutes serves the optional dashboard bundle. The server
// is fully usable over the JSON API when no bundle is installed.
func (a *Application) setupStaticRoutes(r chi.Router) {
	r.Get("/", a.handleRoot)

	if !config.FileExists(a.Paths.StaticDir) {
		return
	}
	r.Route("/static", func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Handle("/*", http.StripPrefix("/static", http.FileServer(http.Dir(a.Paths.StaticDir))))
	})
}

// handleRoot answers the bare root with a service descriptor so a
// browser hitting the port sees where the API lives.
func (a *Application) handleRoot(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"name":    AppName,
		"version": VERSION,
		"links": map[string]string{
			"health":    "/api/health",
			"dataset":   "/api/dataset",
			"analytics": "/api/analytics/overview",
			"clusters":  "/api/clusters",
			"metrics":   "/metrics",
			"ws":        "/ws",
		},
	})
}

// getCORSConfig builds the CORS policy for the current environment.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	sameHost := []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}

	if a.isDevelopmentMode() {
		// Allow the dashboard dev server next to the API port.
		cfg.AllowedOrigins = append([]string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}, sameHost...)
		a.Logger.Info("CORS configured for development mode",
			slog.Any("allowed_origins", cfg.AllowedOrigins))
		return cfg
	}

	cfg.AllowedOrigins = sameHost
	if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
	}
	a.Logger.Info("CORS configured for production mode",
		slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// isDevelopmentMode reports whether dev conveniences such as permissive
// CORS apply. The config flag wins; GO_ENV covers ad hoc runs.
func (a *Application) isDevelopmentMode() bool {
	return a.Config.Logging.Development || os.Getenv("GO_ENV") == "development"
}

// createServer builds the http.Server around the router with the
// configured timeouts and header cap.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the HTTP listener and warms the dataset. A listener
// failure cancels the supplied context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupChecks(ctx); err != nil {
		a.Logger.WarnContext(ctx, "startup checks reported problems",
			slog.String("warnings", err.Error()))
	}

	// Warm the dataset in the background so the first request does not
	// pay for a full pipeline run. Failure is not fatal: data routes
	// answer 503 until a reload succeeds.
	go func() {
		result, err := a.Datasets.Load(context.Background())
		if err != nil {
			a.Logger.Warn("initial dataset load failed",
				slog.String("error", err.Error()),
				slog.String("path", a.Config.DatasetPath()))
			return
		}
		a.Logger.Info("initial dataset load complete",
			slog.Int("rows", result.Info.Rows),
			slog.Bool("from_cache", result.FromCache),
			slog.Duration("took", result.Duration))
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Hub.Stop()

	if a.RuntimeMetrics != nil {
		a.Logger.InfoContext(ctx, "runtime at shutdown", slog.Any("runtime", a.RuntimeMetrics.Stats()))
		if err := a.RuntimeMetrics.Stop(); err != nil {
			a.Logger.WarnContext(ctx, "runtime metrics unregister failed",
				slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")

	// Last, so the shutdown lines above still reach the file sink.
	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}

// Run runs the application until interrupted or the listener fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "server stopped unexpectedly")
	}

	// The run context may already be cancelled; shut down under a
	// fresh one so the timeout applies.
	return a.Stop(context.Background())
}

// handleWebSocket upgrades dashboard connections and hands them to the
// hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())
	a.Logger.InfoContext(ctx, "websocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin or non-browser client.
				return true
			}
			if a.isDevelopmentMode() {
				return true
			}
			for _, allowed := range a.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			a.Logger.WarnContext(ctx, "websocket origin rejected",
				slog.String("origin", origin),
				slog.Any("allowed_origins", a.allowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	ws.ServeWSWithTimings(a.Hub, conn, a.Logger, ws.Timings{
		PongWait:   a.Config.WebSocket.PongWait,
		PingPeriod: a.Config.WebSocket.PingPeriod,
	})
}

// performStartupChecks verifies the working directories and the raw
// dataset. Problems are reported as a single warning, never fatal.
func (a *Application) performStartupChecks(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"data":    a.Paths.DataDir,
		"exports": a.Paths.ExportsDir,
		"cache":   a.Paths.CacheDir,
		"logs":    a.Paths.LogsDir,
	}
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if err := validation.NewFileValidator(a.Logger).ValidateDatasetFile(a.Config.DatasetPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("dataset file not found: %s", a.Config.DatasetPath()))
		} else {
			warnings = append(warnings, fmt.Sprintf("dataset file check failed: %v", err))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup checks: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "startup checks passed")
	return nil
}
