package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"engineatlas/pkg/contracts/domain"
)

func fptr(v float64) *float64 { return &v }

func workbookFixture() WorkbookData {
	year := 2019
	return WorkbookData{
		Overview: domain.OverviewStats{Rows: 3, AvgHP: fptr(190.5)},
		Trends: []domain.TrendPoint{
			{Year: 2018, MeanHP: fptr(185), MeanAccel: fptr(6.1), Count: 2},
			{Year: 2019, Count: 1},
		},
		Leaderboards: domain.Leaderboards{
			Fastest: []domain.LeaderboardEntry{
				{Signature: "BMW S58 Inline 6 3.0L", Make: "BMW", Model: "M3", Year: &year, Value: 3.9},
			},
			MostPowerful: []domain.LeaderboardEntry{
				{Signature: "BMW S58 Inline 6 3.0L", Make: "BMW", Value: 510},
			},
		},
		Clusters: []domain.ClusterSummary{
			{
				ClusterID:     0,
				Name:          domain.ClusterLabelEfficient,
				Count:         2,
				MeanHP:        72.5,
				MeanAccel:     14.5,
				MeanFuel:      4.15,
				MeanCylinders: 3,
			},
		},
	}
}

func openWorkbook(t *testing.T, data WorkbookData) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, New(nil).WriteWorkbook(&buf, data))
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref)
	require.NoError(t, err)
	return v
}

func TestExporter_WriteWorkbook(t *testing.T) {
	f := openWorkbook(t, workbookFixture())

	t.Run("sheets in tab order", func(t *testing.T) {
		assert.Equal(t, []string{"Overview", "Trends", "Leaderboards", "Clusters"}, f.GetSheetList())
	})

	t.Run("overview metrics", func(t *testing.T) {
		assert.Equal(t, "Metric", cell(t, f, "Overview", "A1"))
		assert.Equal(t, "3", cell(t, f, "Overview", "B2"))
		assert.Equal(t, "Average power (HP)", cell(t, f, "Overview", "A3"))
		assert.Equal(t, "190.5", cell(t, f, "Overview", "B3"))
		assert.Empty(t, cell(t, f, "Overview", "B4"), "missing average stays blank")
	})

	t.Run("trends one row per year", func(t *testing.T) {
		assert.Equal(t, "Year", cell(t, f, "Trends", "A1"))
		assert.Equal(t, "2018", cell(t, f, "Trends", "A2"))
		assert.Equal(t, "185", cell(t, f, "Trends", "B2"))
		assert.Equal(t, "6.1", cell(t, f, "Trends", "C2"))
		assert.Equal(t, "2", cell(t, f, "Trends", "F2"))
		assert.Empty(t, cell(t, f, "Trends", "B3"), "year without hp samples stays blank")
		assert.Equal(t, "1", cell(t, f, "Trends", "F3"))
	})

	t.Run("leaderboard sections stack with blank separators", func(t *testing.T) {
		assert.Equal(t, "Fastest 0-100 km/h", cell(t, f, "Leaderboards", "A1"))
		assert.Equal(t, "Rank", cell(t, f, "Leaderboards", "A2"))
		assert.Equal(t, "1", cell(t, f, "Leaderboards", "A3"))
		assert.Equal(t, "BMW S58 Inline 6 3.0L", cell(t, f, "Leaderboards", "B3"))
		assert.Equal(t, "2019", cell(t, f, "Leaderboards", "E3"))
		assert.Equal(t, "3.9", cell(t, f, "Leaderboards", "F3"))

		assert.Empty(t, cell(t, f, "Leaderboards", "A4"))
		assert.Equal(t, "Most powerful", cell(t, f, "Leaderboards", "A5"))
		assert.Equal(t, "510", cell(t, f, "Leaderboards", "F7"))
		assert.Empty(t, cell(t, f, "Leaderboards", "E7"), "missing year stays blank")

		// Empty sections still write their title and header rows.
		assert.Equal(t, "Most efficient", cell(t, f, "Leaderboards", "A9"))
		assert.Equal(t, "Best power density (HP/L)", cell(t, f, "Leaderboards", "A12"))
		assert.Equal(t, "Best balanced", cell(t, f, "Leaderboards", "A15"))
	})

	t.Run("cluster summary rows", func(t *testing.T) {
		assert.Equal(t, "Cluster", cell(t, f, "Clusters", "A1"))
		assert.Equal(t, "0", cell(t, f, "Clusters", "A2"))
		assert.Equal(t, domain.ClusterLabelEfficient, cell(t, f, "Clusters", "B2"))
		assert.Equal(t, "2", cell(t, f, "Clusters", "C2"))
		assert.Equal(t, "72.5", cell(t, f, "Clusters", "D2"))
		assert.Equal(t, "3", cell(t, f, "Clusters", "G2"))
	})
}

func TestExporter_WriteWorkbook_Empty(t *testing.T) {
	f := openWorkbook(t, WorkbookData{})

	assert.Equal(t, []string{"Overview", "Trends", "Leaderboards", "Clusters"}, f.GetSheetList())
	assert.Equal(t, "0", cell(t, f, "Overview", "B2"))
	assert.Equal(t, "Year", cell(t, f, "Trends", "A1"))
	assert.Equal(t, "Cluster", cell(t, f, "Clusters", "A1"))
}
