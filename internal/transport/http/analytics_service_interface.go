package http

import (
	"context"

	"engineatlas/internal/dataset"
	"engineatlas/pkg/contracts/domain"
)

// AnalyticsServiceInterface defines the interface for analytics
// operations as consumed by the analytics and engine handlers.
type AnalyticsServiceInterface interface {
	Overview(ctx context.Context, f dataset.Filter) (domain.OverviewStats, error)
	Trends(ctx context.Context, f dataset.Filter) ([]domain.TrendPoint, error)
	BrandBattles(ctx context.Context, f dataset.Filter) (domain.BrandBattles, error)
	Leaderboards(ctx context.Context, f dataset.Filter) (domain.Leaderboards, error)
	EngineCard(ctx context.Context, f dataset.Filter, signature string) (*domain.EngineCard, error)
}
