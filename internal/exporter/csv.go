package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"engineatlas/internal/dataset"
)

// utf8BOM helps Excel recognize UTF-8 encoded CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Exporter renders dataset views and analytics aggregates to
// downloadable formats.
type Exporter struct {
	logger *slog.Logger
}

// New returns an exporter logging to the given logger.
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger.With(slog.String("component", "exporter"))}
}

// CSVOptions configures CSV rendering.
type CSVOptions struct {
	// Columns selects and orders the exported columns. Empty means
	// every column in table order.
	Columns []string
	// BOMPrefix prepends a UTF-8 BOM for Excel compatibility.
	BOMPrefix bool
}

// WriteCSV streams the view to w as CSV, one header row followed by
// one record per table row. Missing numeric cells render as empty
// fields.
func (e *Exporter) WriteCSV(w io.Writer, view *dataset.Table, opts CSVOptions) error {
	names := opts.Columns
	if len(names) == 0 {
		names = view.Names()
	}
	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		col, ok := view.Column(name)
		if !ok {
			return fmt.Errorf("column %q not found", name)
		}
		cols[i] = col
	}

	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(cols))
	for row := 0; row < view.NumRows(); row++ {
		for i, col := range cols {
			record[i] = col.Text(row)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", row, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	e.logger.Debug("csv export written",
		slog.Int("rows", view.NumRows()),
		slog.Int("columns", len(cols)))
	return nil
}

// WriteCSVFile writes the view to path, creating parent directories
// as needed.
func (e *Exporter) WriteCSVFile(path string, view *dataset.Table, opts CSVOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := e.WriteCSV(f, view, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
