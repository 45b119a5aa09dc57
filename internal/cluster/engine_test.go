package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engineatlas/internal/dataset"
	"engineatlas/pkg/contracts/domain"
)

// clusterFixture builds two sharply separated engine populations: a
// frugal low-power group and a thirsty high-power group, plus one row
// with an incomplete feature set.
func clusterFixture(t *testing.T) *dataset.Table {
	t.Helper()
	f := dataset.FloatFrom

	hp := []dataset.Float{f(70), f(72), f(68), f(400), f(410), f(390), f(75)}
	accel := []dataset.Float{f(14), f(14.5), f(13.5), f(4), f(4.2), f(3.8), f(15)}
	fuel := []dataset.Float{f(4), f(4.2), f(3.8), f(15), f(15.5), f(14.5), dataset.Missing()}
	cyl := []dataset.Float{f(3), f(3), f(3), f(8), f(8), f(8), f(4)}
	makes := []string{"Lupo", "Lupo", "Lupo", "Brute", "Brute", "Brute", "Gap"}

	tbl := dataset.NewTable()
	require.NoError(t, tbl.AddTextColumn(dataset.ColMake, makes))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP, hp))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColAcceleration, accel))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColMixedFuel, fuel))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColNumberOfCylinders, cyl))
	return tbl
}

func TestEngine_Compute(t *testing.T) {
	ctx := context.Background()

	t.Run("augments the complete-feature subset", func(t *testing.T) {
		view := clusterFixture(t)

		out, err := NewEngine(nil).Compute(ctx, view, 2)
		require.NoError(t, err)

		// The row with a missing fuel value is dropped.
		assert.Equal(t, 6, out.NumRows())
		for _, name := range []string{
			dataset.ColClusterID,
			dataset.ColPCAX,
			dataset.ColPCAY,
			dataset.ColClusterName,
		} {
			assert.True(t, out.Has(name), "missing column %s", name)
		}

		// Input stays pristine.
		assert.Equal(t, 7, view.NumRows())
		assert.False(t, view.Has(dataset.ColClusterID))
	})

	t.Run("separated groups land in separate clusters", func(t *testing.T) {
		out, err := NewEngine(nil).Compute(ctx, clusterFixture(t), 2)
		require.NoError(t, err)

		frugal := out.Float(dataset.ColClusterID, 0)
		thirsty := out.Float(dataset.ColClusterID, 3)
		require.True(t, frugal.Valid)
		require.True(t, thirsty.Valid)
		assert.NotEqual(t, frugal.Value, thirsty.Value)

		for row := 0; row < 3; row++ {
			assert.Equal(t, frugal.Value, out.Float(dataset.ColClusterID, row).Value)
		}
		for row := 3; row < 6; row++ {
			assert.Equal(t, thirsty.Value, out.Float(dataset.ColClusterID, row).Value)
		}
	})

	t.Run("centroid labels follow the rule table", func(t *testing.T) {
		out, err := NewEngine(nil).Compute(ctx, clusterFixture(t), 2)
		require.NoError(t, err)

		assert.Equal(t, domain.ClusterLabelEfficient, out.Text(dataset.ColClusterName, 0))
		assert.Equal(t, domain.ClusterLabelHighPower, out.Text(dataset.ColClusterName, 3))
	})

	t.Run("projection separates the groups", func(t *testing.T) {
		out, err := NewEngine(nil).Compute(ctx, clusterFixture(t), 2)
		require.NoError(t, err)

		assert.NotEqual(t, out.Float(dataset.ColPCAX, 0).Value, out.Float(dataset.ColPCAX, 3).Value)
	})

	t.Run("repeated runs are identical", func(t *testing.T) {
		view := clusterFixture(t)
		engine := NewEngine(nil)

		first, err := engine.Compute(ctx, view, 3)
		require.NoError(t, err)
		second, err := engine.Compute(ctx, view, 3)
		require.NoError(t, err)

		for _, name := range []string{dataset.ColClusterID, dataset.ColPCAX, dataset.ColPCAY} {
			a, _ := first.Column(name)
			b, _ := second.Column(name)
			assert.Equal(t, a.Floats(), b.Floats(), "column %s", name)
		}
		aName, _ := first.Column(dataset.ColClusterName)
		bName, _ := second.Column(dataset.ColClusterName)
		assert.Equal(t, aName.Texts(), bName.Texts())
	})

	t.Run("k below one is rejected", func(t *testing.T) {
		_, err := NewEngine(nil).Compute(ctx, clusterFixture(t), 0)
		assert.ErrorIs(t, err, ErrClusterCount)
	})

	t.Run("k beyond the complete rows is rejected", func(t *testing.T) {
		_, err := NewEngine(nil).Compute(ctx, clusterFixture(t), 7)
		assert.ErrorIs(t, err, ErrTooFewRows)
	})

	t.Run("missing feature column is rejected", func(t *testing.T) {
		tbl := dataset.NewTable()
		require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP,
			[]dataset.Float{dataset.FloatFrom(100)}))

		_, err := NewEngine(nil).Compute(ctx, tbl, 1)
		assert.Error(t, err)
	})

	t.Run("all rows incomplete is rejected for any k", func(t *testing.T) {
		tbl := dataset.NewTable()
		require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP,
			[]dataset.Float{dataset.FloatFrom(100)}))
		require.NoError(t, tbl.AddFloatColumn(dataset.ColAcceleration,
			[]dataset.Float{dataset.FloatFrom(9)}))
		require.NoError(t, tbl.AddFloatColumn(dataset.ColMixedFuel,
			[]dataset.Float{dataset.Missing()}))
		require.NoError(t, tbl.AddFloatColumn(dataset.ColNumberOfCylinders,
			[]dataset.Float{dataset.FloatFrom(4)}))

		_, err := NewEngine(nil).Compute(ctx, tbl, 1)
		assert.Error(t, err)
	})
}
