package http

import (
	"context"

	"engineatlas/internal/config"
	"engineatlas/internal/dataset"
	"engineatlas/pkg/contracts/domain"
)

// ClusterServiceInterface defines the interface for cluster operations
// as consumed by the cluster handler.
type ClusterServiceInterface interface {
	Bounds() config.ClusterConfig
	Compute(ctx context.Context, f dataset.Filter, k int) (*domain.ClusterResult, error)
}
