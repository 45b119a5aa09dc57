package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engineatlas/internal/analytics"
	"engineatlas/internal/dataset"
	apierrors "engineatlas/internal/errors"
)

// analyticsViewFixture covers every DNA card field so the first row
// can act as the representative engine.
func analyticsViewFixture(t *testing.T) *dataset.Table {
	t.Helper()
	f := dataset.FloatFrom

	tbl := dataset.NewTable()
	require.NoError(t, tbl.AddTextColumn(dataset.ColMake, []string{"Toyota", "Toyota", "BMW"}))
	require.NoError(t, tbl.AddTextColumn(dataset.ColModel, []string{"Corolla", "Camry", "M3"}))
	require.NoError(t, tbl.AddTextColumn(dataset.ColTrim, []string{"1.8", "2.5", "Base"}))
	require.NoError(t, tbl.AddTextColumn(dataset.ColEngineType, []string{"Gasoline", "Gasoline", "Gasoline"}))
	require.NoError(t, tbl.AddTextColumn(dataset.ColCylinderLayout, []string{"Inline", "Inline", "Inline"}))
	require.NoError(t, tbl.AddTextColumn(dataset.ColEngineSignature,
		[]string{"Toyota 1.8L I4", "Toyota 2.5L I4", "BMW 3.0L I6"}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColNumberOfCylinders,
		[]dataset.Float{f(4), f(4), f(6)}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP,
		[]dataset.Float{f(140), f(181), f(431)}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColDisplacementL,
		[]dataset.Float{f(1.8), f(2.5), f(3.0)}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColAcceleration,
		[]dataset.Float{f(9.5), f(8.1), f(4.1)}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColMixedFuel,
		[]dataset.Float{f(7.1), f(7.8), f(8.8)}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColYear,
		[]dataset.Float{f(2005), f(2012), f(2014)}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColCO2,
		[]dataset.Float{f(165), f(180), f(204)}))
	return tbl
}

func newTestAnalyticsService(t *testing.T, provider DatasetProvider) *AnalyticsService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAnalyticsService(provider, analytics.NewAnalyzer(logger), logger)
}

func TestAnalyticsService_Overview(t *testing.T) {
	ctx := context.Background()
	svc := newTestAnalyticsService(t, &stubProvider{tbl: analyticsViewFixture(t)})

	stats, err := svc.Overview(ctx, dataset.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rows)
	require.NotNil(t, stats.AvgHP)
	assert.InDelta(t, 250.67, *stats.AvgHP, 0.01)

	filtered, err := svc.Overview(ctx, dataset.Filter{Makes: []string{"Toyota"}})
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Rows)
}

func TestAnalyticsService_Trends(t *testing.T) {
	ctx := context.Background()
	svc := newTestAnalyticsService(t, &stubProvider{tbl: analyticsViewFixture(t)})

	points, err := svc.Trends(ctx, dataset.Filter{})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 2005, points[0].Year)
	assert.Equal(t, 2014, points[2].Year)
}

func TestAnalyticsService_BrandBattles(t *testing.T) {
	ctx := context.Background()
	svc := newTestAnalyticsService(t, &stubProvider{tbl: analyticsViewFixture(t)})

	battles, err := svc.BrandBattles(ctx, dataset.Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, battles.MedianHP)
	assert.Equal(t, "BMW", battles.MedianHP[0].Make)
}

func TestAnalyticsService_Leaderboards(t *testing.T) {
	ctx := context.Background()
	svc := newTestAnalyticsService(t, &stubProvider{tbl: analyticsViewFixture(t)})

	boards, err := svc.Leaderboards(ctx, dataset.Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, boards.Fastest)
	assert.Equal(t, "BMW 3.0L I6", boards.Fastest[0].Signature)
	require.NotEmpty(t, boards.MostPowerful)
	assert.Equal(t, "BMW 3.0L I6", boards.MostPowerful[0].Signature)
}

func TestAnalyticsService_EngineCard(t *testing.T) {
	ctx := context.Background()
	svc := newTestAnalyticsService(t, &stubProvider{tbl: analyticsViewFixture(t)})

	t.Run("builds the representative card", func(t *testing.T) {
		card, err := svc.EngineCard(ctx, dataset.Filter{}, "")
		require.NoError(t, err)
		assert.Equal(t, "Toyota", card.Make)
		assert.Equal(t, "Corolla", card.Model)
		require.NotNil(t, card.HP)
		assert.Equal(t, float64(140), *card.HP)
	})

	t.Run("signature narrows to one engine family", func(t *testing.T) {
		card, err := svc.EngineCard(ctx, dataset.Filter{}, "BMW 3.0L I6")
		require.NoError(t, err)
		assert.Equal(t, "BMW", card.Make)
		assert.Equal(t, "M3", card.Model)
	})

	t.Run("unknown signature has no representative", func(t *testing.T) {
		_, err := svc.EngineCard(ctx, dataset.Filter{}, "Nohone 9.9L W16")
		assert.ErrorIs(t, err, apierrors.ErrEngineMissing)
	})

	t.Run("empty view has no representative", func(t *testing.T) {
		_, err := svc.EngineCard(ctx, dataset.Filter{Makes: []string{"Nobody"}}, "")
		assert.ErrorIs(t, err, apierrors.ErrEngineMissing)
	})
}

func TestAnalyticsService_ProviderError(t *testing.T) {
	svc := newTestAnalyticsService(t, &stubProvider{err: apierrors.ErrDatasetNotLoaded})

	_, err := svc.Overview(context.Background(), dataset.Filter{})
	assert.ErrorIs(t, err, apierrors.ErrDatasetNotLoaded)
}
