package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"engineatlas/pkg/contracts/domain"
)

// Sheet names of the analytics workbook, in tab order.
const (
	sheetOverview     = "Overview"
	sheetTrends       = "Trends"
	sheetLeaderboards = "Leaderboards"
	sheetClusters     = "Clusters"
)

// WorkbookData bundles the analytics aggregates rendered into the
// Excel report.
type WorkbookData struct {
	Overview     domain.OverviewStats
	Trends       []domain.TrendPoint
	Leaderboards domain.Leaderboards
	Clusters     []domain.ClusterSummary
}

// WriteWorkbook renders the aggregates as a four-sheet XLSX workbook.
// Missing values become empty cells.
func (e *Exporter) WriteWorkbook(w io.Writer, data WorkbookData) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), sheetOverview)
	if err := writeOverviewSheet(f, data.Overview); err != nil {
		return err
	}
	if err := writeTrendsSheet(f, data.Trends); err != nil {
		return err
	}
	if err := writeLeaderboardsSheet(f, data.Leaderboards); err != nil {
		return err
	}
	if err := writeClustersSheet(f, data.Clusters); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	e.logger.Debug("workbook export written",
		slog.Int("trend_points", len(data.Trends)),
		slog.Int("clusters", len(data.Clusters)))
	return nil
}

// WriteWorkbookFile writes the workbook to path, creating parent
// directories as needed.
func (e *Exporter) WriteWorkbookFile(path string, data WorkbookData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := e.WriteWorkbook(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeOverviewSheet(f *excelize.File, stats domain.OverviewStats) error {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Engines", stats.Rows},
		{"Average power (HP)", floatCell(stats.AvgHP)},
		{"Average 0-100 km/h (s)", floatCell(stats.AvgAccel)},
		{"Average CO2 (g/km)", floatCell(stats.AvgCO2)},
	}
	return writeRows(f, sheetOverview, 1, rows)
}

func writeTrendsSheet(f *excelize.File, points []domain.TrendPoint) error {
	if _, err := f.NewSheet(sheetTrends); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheetTrends, err)
	}
	rows := make([][]interface{}, 0, len(points)+1)
	rows = append(rows, []interface{}{
		"Year", "Mean HP", "Mean 0-100 km/h (s)", "Mean CO2 (g/km)", "Median cylinders", "Engines",
	})
	for _, p := range points {
		rows = append(rows, []interface{}{
			p.Year,
			floatCell(p.MeanHP),
			floatCell(p.MeanAccel),
			floatCell(p.MeanCO2),
			floatCell(p.MedianCylinders),
			p.Count,
		})
	}
	return writeRows(f, sheetTrends, 1, rows)
}

func writeLeaderboardsSheet(f *excelize.File, boards domain.Leaderboards) error {
	if _, err := f.NewSheet(sheetLeaderboards); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheetLeaderboards, err)
	}
	sections := []struct {
		title   string
		entries []domain.LeaderboardEntry
	}{
		{"Fastest 0-100 km/h", boards.Fastest},
		{"Most powerful", boards.MostPowerful},
		{"Most efficient", boards.MostEfficient},
		{"Best power density (HP/L)", boards.BestPowerDensity},
		{"Best balanced", boards.BestBalanced},
	}
	row := 1
	for _, section := range sections {
		rows := [][]interface{}{
			{section.title},
			{"Rank", "Engine", "Make", "Model", "Year", "Value"},
		}
		for i, entry := range section.entries {
			rows = append(rows, []interface{}{
				i + 1,
				entry.Signature,
				entry.Make,
				entry.Model,
				intCell(entry.Year),
				entry.Value,
			})
		}
		if err := writeRows(f, sheetLeaderboards, row, rows); err != nil {
			return err
		}
		// One blank row between sections.
		row += len(rows) + 1
	}
	return nil
}

func writeClustersSheet(f *excelize.File, summaries []domain.ClusterSummary) error {
	if _, err := f.NewSheet(sheetClusters); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheetClusters, err)
	}
	rows := make([][]interface{}, 0, len(summaries)+1)
	rows = append(rows, []interface{}{
		"Cluster", "Name", "Engines", "Mean HP", "Mean 0-100 km/h (s)", "Mean fuel (L/100km)", "Mean cylinders",
	})
	for _, s := range summaries {
		rows = append(rows, []interface{}{
			s.ClusterID,
			s.Name,
			s.Count,
			s.MeanHP,
			s.MeanAccel,
			s.MeanFuel,
			s.MeanCylinders,
		})
	}
	return writeRows(f, sheetClusters, 1, rows)
}

// writeRows writes consecutive rows starting at startRow, column A.
func writeRows(f *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", startRow+i, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, startRow+i, err)
		}
	}
	return nil
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intCell(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
