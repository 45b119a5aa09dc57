// Package validation performs pre-flight checks on dataset input files
// and export destinations, so pipeline runs fail fast with a clear
// message instead of surfacing a low-level read or write error halfway
// through.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileValidator checks raw dataset files before they reach the cleaning
// pipeline and export paths before anything expensive runs.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a file validator. A nil logger falls back to
// the process default.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateDatasetFile checks that path names a readable, non-empty CSV
// file. A missing file wraps os.ErrNotExist so callers can translate it
// into their own not-found errors.
func (v *FileValidator) ValidateDatasetFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Warn("dataset file does not exist",
			slog.String("path", path))
		return fmt.Errorf("dataset file %s: %w", path, os.ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("stat dataset file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("dataset path %s is a directory, not a file", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return fmt.Errorf("dataset file %s is not a CSV file (extension %q)", path, ext)
	}
	if info.Size() == 0 {
		return fmt.Errorf("dataset file %s is empty", path)
	}

	// Permission problems should surface here, not inside the loader.
	file, err := os.Open(path)
	if err != nil {
		v.logger.Warn("dataset file is not readable",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("dataset file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("dataset file validated",
		slog.String("path", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputPath ensures the parent directory of path exists and is
// writable, creating it when missing. The path itself must not name an
// existing directory.
func (v *FileValidator) ValidateOutputPath(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("output path %s is a directory", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Warn("cannot create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write_test")
	file, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(probe)

	v.logger.Debug("output path validated", slog.String("path", path))
	return nil
}
