package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Paths contains all the application paths.
// This is the single source of truth for file paths in the application.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	CacheDir      string
	LogsDir       string
	WebDir        string
	StaticDir     string

	// Well-known files
	DatasetFile string
}

// NewPaths builds the path set rooted at baseDir.
func NewPaths(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	webDir := filepath.Join(baseDir, "web")
	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		ExportsDir:    filepath.Join(dataDir, "exports"),
		CacheDir:      filepath.Join(dataDir, "cache"),
		LogsDir:       filepath.Join(baseDir, "logs"),
		WebDir:        webDir,
		StaticDir:     filepath.Join(webDir, "static"),
		DatasetFile:   filepath.Join(dataDir, DefaultDatasetFileName),
	}
}

// GetPaths returns the application paths relative to the executable
// location, never the current working directory. This keeps the layout
// stable no matter where the binary is started from.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location.
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// EnsureDirectories creates all required directories if they do not
// exist.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.DataDir,
		p.ExportsDir,
		p.CacheDir,
		p.LogsDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetExportPath returns the full path for an export file.
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetCachePath returns the full path for a cache file.
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetLogPath returns the full path for a log file.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetWebFilePath returns the full path for a web file.
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetStaticFilePath returns the full path for a static asset.
func (p *Paths) GetStaticFilePath(filename string) string {
	return filepath.Join(p.StaticDir, filename)
}

// FindDatasetFile locates the raw engine CSV. It prefers the
// well-known file name, then falls back to the lexically first CSV in
// the data directory.
func (p *Paths) FindDatasetFile() (string, error) {
	if FileExists(p.DatasetFile) {
		return p.DatasetFile, nil
	}
	matches, err := filepath.Glob(filepath.Join(p.DataDir, DatasetFileGlob))
	if err != nil {
		return "", fmt.Errorf("failed to scan data directory: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no dataset file under %s", p.DataDir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// LogPathResolution logs all resolved paths for debugging.
func (p *Paths) LogPathResolution() {
	slog.Debug("resolved application paths",
		slog.String("executable_dir", p.ExecutableDir),
		slog.String("data_dir", p.DataDir),
		slog.String("exports_dir", p.ExportsDir),
		slog.String("cache_dir", p.CacheDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("web_dir", p.WebDir))
}
