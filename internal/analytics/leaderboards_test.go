package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engineatlas/internal/dataset"
)

func leaderboardFixture(t *testing.T) *dataset.Table {
	t.Helper()
	f := dataset.FloatFrom

	tbl := dataset.NewTable()
	require.NoError(t, tbl.AddTextColumn(dataset.ColMake,
		[]string{"Swift", "Swift", "Hauler", "Mystery"}))
	require.NoError(t, tbl.AddTextColumn(dataset.ColModel,
		[]string{"One", "One", "Max", "X"}))
	require.NoError(t, tbl.AddTextColumn(dataset.ColEngineSignature,
		[]string{"Swift One 1.6L", "Swift One 1.6L", "Hauler Max 5.0L", "Mystery X 2.0L"}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColAcceleration,
		[]dataset.Float{f(5.2), f(4.8), f(9.9), dataset.Missing()}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP,
		[]dataset.Float{f(180), f(190), f(420), f(95)}))
	require.NoError(t, tbl.AddFloatColumn(dataset.ColYear,
		[]dataset.Float{f(2018), f(2019), f(2016), dataset.Missing()}))
	return tbl
}

func TestAnalyzer_Leaderboards(t *testing.T) {
	t.Run("fastest ranks ascending and deduplicates signatures", func(t *testing.T) {
		got := NewAnalyzer(nil).Leaderboards(leaderboardFixture(t))

		require.Len(t, got.Fastest, 2)
		assert.Equal(t, "Swift One 1.6L", got.Fastest[0].Signature)
		assert.Equal(t, 4.8, got.Fastest[0].Value)
		require.NotNil(t, got.Fastest[0].Year)
		assert.Equal(t, 2019, *got.Fastest[0].Year)
		assert.Equal(t, "Hauler Max 5.0L", got.Fastest[1].Signature)
	})

	t.Run("most powerful ranks descending", func(t *testing.T) {
		got := NewAnalyzer(nil).Leaderboards(leaderboardFixture(t))

		require.Len(t, got.MostPowerful, 3)
		assert.Equal(t, "Hauler Max 5.0L", got.MostPowerful[0].Signature)
		assert.Equal(t, 420.0, got.MostPowerful[0].Value)
		// The two Swift trims collapse into the best one.
		assert.Equal(t, "Swift One 1.6L", got.MostPowerful[1].Signature)
		assert.Equal(t, 190.0, got.MostPowerful[1].Value)
		assert.Equal(t, "Mystery X 2.0L", got.MostPowerful[2].Signature)
		assert.Nil(t, got.MostPowerful[2].Year)
	})

	t.Run("boards for absent metrics are empty", func(t *testing.T) {
		got := NewAnalyzer(nil).Leaderboards(leaderboardFixture(t))

		assert.Empty(t, got.MostEfficient)
		assert.Empty(t, got.BestPowerDensity)
		assert.Empty(t, got.BestBalanced)
	})

	t.Run("boards cap at fifteen entries", func(t *testing.T) {
		f := dataset.FloatFrom
		var sigs []string
		var hp []dataset.Float
		for i := 0; i < 30; i++ {
			sigs = append(sigs, fmt.Sprintf("Sig %02d", i))
			hp = append(hp, f(float64(100+i)))
		}
		tbl := dataset.NewTable()
		require.NoError(t, tbl.AddTextColumn(dataset.ColEngineSignature, sigs))
		require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP, hp))

		got := NewAnalyzer(nil).Leaderboards(tbl)

		require.Len(t, got.MostPowerful, leaderboardSize)
		assert.Equal(t, "Sig 29", got.MostPowerful[0].Signature)
		assert.Equal(t, 129.0, got.MostPowerful[0].Value)
	})

	t.Run("rows without signatures still rank", func(t *testing.T) {
		f := dataset.FloatFrom
		tbl := dataset.NewTable()
		require.NoError(t, tbl.AddFloatColumn(dataset.ColEngineHP,
			[]dataset.Float{f(100), f(200)}))

		got := NewAnalyzer(nil).Leaderboards(tbl)

		require.Len(t, got.MostPowerful, 2)
		assert.Equal(t, 200.0, got.MostPowerful[0].Value)
		assert.Empty(t, got.MostPowerful[0].Signature)
	})
}
