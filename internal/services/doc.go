// Package services implements the business logic layer between HTTP
// handlers and the data packages. Handlers stay thin; everything that
// decides, validates or coordinates lives here.
//
// # Services
//
//	- DatasetService: owns the canonical dataset. Loads the raw CSV
//	  through the cleaning pipeline, caches the cleaned table, hands
//	  out filtered views, schema reports and record pages.
//	- ClusterService: validates k against the configured bounds and
//	  runs the cluster engine over the current filtered view.
//	- AnalyticsService: dashboard aggregates (overview, trends, brand
//	  battles, leaderboards) and the engine DNA card.
//	- ImageService: Wikipedia image lookups for engine cards.
//	- ExportService: CSV streams and the XLSX analytics workbook.
//	- HealthService: liveness, readiness and system statistics.
//
// # Conventions
//
// Every blocking method takes a context.Context and propagates
// cancellation into the data packages. Services return the sentinel
// errors from internal/errors (wrapped, so errors.Is works) and leave
// HTTP status mapping to the transport layer. Loggers are injected;
// a nil logger falls back to slog.Default.
package services
