// Package config loads and validates the EngineAtlas configuration.
// One Config value covers the HTTP server, the dataset pipeline, the
// clustering bounds and the optional Wikipedia image lookup. The rest
// of the application receives it at construction time; nothing reads
// configuration lazily.
//
// # Configuration Sources
//
// Values are resolved in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Built-in defaults (lowest priority)
//
// # Environment Variables
//
// Every variable carries the ATLAS_ prefix:
//
//	ATLAS_SERVER_PORT=8080
//	ATLAS_DATASET_PATH=data/cars_engines.csv
//	ATLAS_CLUSTER_DEFAULTK=4
//	ATLAS_LOGGING_LEVEL=info
//	ATLAS_WIKIPEDIA_ENABLED=true
//
// # Path Management
//
// Paths resolves every file the server touches relative to the
// executable, so a deployment can be relocated as one directory:
//
//	paths, err := config.GetPaths()
//	exportPath := paths.GetExportPath("clean.csv")
//	logPath := paths.GetLogPath("app.log")
//
// # Usage
//
// Load once at startup and hand the value down:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
