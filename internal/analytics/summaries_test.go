package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engineatlas/internal/dataset"
	"engineatlas/pkg/contracts/domain"
)

func TestAnalyzer_ClusterSummaries(t *testing.T) {
	f := dataset.FloatFrom

	t.Run("one summary per cluster ordered by id", func(t *testing.T) {
		tbl := dataset.NewTable()
		require.NoError(t, tbl.AddFloatColumn(dataset.ColClusterID,
			[]dataset.Float{f(1), f(0), f(0)}))
		require.NoError(t, tbl.AddTextColumn(dataset.ColClusterName,
			[]string{domain.ClusterLabelHighPower, domain.ClusterLabelEfficient, domain.ClusterLabelEfficient}))
		require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP,
			[]dataset.Float{f(400), f(70), f(75)}))
		require.NoError(t, tbl.AddFloatColumn(dataset.ColAcceleration,
			[]dataset.Float{f(4), f(14), f(15)}))
		require.NoError(t, tbl.AddFloatColumn(dataset.ColMixedFuel,
			[]dataset.Float{f(15), f(4.1), f(4.2)}))
		require.NoError(t, tbl.AddFloatColumn(dataset.ColNumberOfCylinders,
			[]dataset.Float{f(8), f(3), f(3)}))

		got := NewAnalyzer(nil).ClusterSummaries(tbl)

		require.Len(t, got, 2)

		assert.Equal(t, 0, got[0].ClusterID)
		assert.Equal(t, domain.ClusterLabelEfficient, got[0].Name)
		assert.Equal(t, 2, got[0].Count)
		assert.Equal(t, 72.5, got[0].MeanHP)
		assert.Equal(t, 14.5, got[0].MeanAccel)
		assert.Equal(t, 4.15, got[0].MeanFuel)
		assert.Equal(t, 3.0, got[0].MeanCylinders)

		assert.Equal(t, 1, got[1].ClusterID)
		assert.Equal(t, domain.ClusterLabelHighPower, got[1].Name)
		assert.Equal(t, 1, got[1].Count)
		assert.Equal(t, 400.0, got[1].MeanHP)
	})

	t.Run("unclustered table yields nothing", func(t *testing.T) {
		tbl := dataset.NewTable()
		require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP,
			[]dataset.Float{f(100)}))

		assert.Nil(t, NewAnalyzer(nil).ClusterSummaries(tbl))
	})
}
