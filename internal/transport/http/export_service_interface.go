package http

import (
	"context"
	"io"

	"engineatlas/internal/dataset"
)

// ExportServiceInterface defines the interface for export operations
// as consumed by the export handler.
type ExportServiceInterface interface {
	WriteCSV(ctx context.Context, w io.Writer, f dataset.Filter, columns []string) error
	WriteWorkbook(ctx context.Context, w io.Writer, f dataset.Filter, k int) error
}
