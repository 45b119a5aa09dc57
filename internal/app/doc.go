// Package app wires the Engine Atlas server together and manages its
// lifecycle: configuration loading, service construction, routing and
// graceful shutdown.
//
// # Initialization Flow
//
// NewApplication runs the sequence:
//
//	1. Load configuration from defaults, YAML and environment
//	2. Initialize the process-wide slog logger
//	3. Resolve and create the data/exports/cache/logs directories
//	4. Initialize OpenTelemetry tracing and metrics
//	5. Build the service graph (hub, pipeline, dataset, analytics,
//	   clusters, images, export, health)
//	6. Assemble the chi router and the HTTP server
//
// # Routing
//
// The /ws endpoint is registered outside the main middleware group so
// the upgrade path is never wrapped by a buffering ResponseWriter. The
// /metrics endpoint also sits outside the group. Everything under /api
// runs through the full chain: request ID, real IP, OTel, business
// metrics, structured logging, panic recovery, security headers, CORS
// and rate limiting.
//
// # Graceful Shutdown
//
// Run blocks until SIGINT/SIGTERM or a listener failure, then shuts
// down in order: HTTP server drain, WebSocket hub, OpenTelemetry
// providers. Initialization errors are returned to the caller; the
// package never calls os.Exit.
package app
