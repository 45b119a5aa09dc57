package http

import (
	"context"

	"engineatlas/internal/dataset"
	"engineatlas/internal/services"
	"engineatlas/pkg/contracts/domain"
)

// DatasetServiceInterface defines the interface for dataset operations
// as consumed by the dataset handler.
type DatasetServiceInterface interface {
	Load(ctx context.Context) (services.LoadResult, error)
	Reload(ctx context.Context, force bool) (services.LoadResult, error)
	Loaded() bool
	Info(ctx context.Context) (domain.DatasetInfo, error)
	Schema(ctx context.Context) (domain.SchemaReport, error)
	Records(ctx context.Context, f dataset.Filter, limit, offset int) (domain.RecordPage, error)
	FilterOptions(ctx context.Context) (domain.FilterOptions, error)
}
