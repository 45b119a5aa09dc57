package analytics

import (
	"log/slog"
	"sort"
	"strings"

	"engineatlas/internal/dataset"
	"engineatlas/pkg/contracts/domain"
)

// Analyzer computes the dashboard aggregates. It carries no state
// beyond a logger and is safe for concurrent use.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer returns an analyzer logging to the given logger.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger.With(slog.String("component", "analytics"))}
}

// Overview summarizes the view for the dashboard header.
func (a *Analyzer) Overview(view *dataset.Table) domain.OverviewStats {
	rows := allRows(view.NumRows())
	stats := domain.OverviewStats{Rows: view.NumRows()}
	if col, ok := view.Column(dataset.ColEngineHP); ok {
		stats.AvgHP = roundPtr(meanPtr(col, rows))
	}
	if col, ok := view.Column(dataset.ColAcceleration); ok {
		stats.AvgAccel = roundPtr(meanPtr(col, rows))
	}
	if col, ok := view.Column(dataset.ColCO2); ok {
		stats.AvgCO2 = roundPtr(meanPtr(col, rows))
	}
	return stats
}

// Trends aggregates the view per model year: mean horsepower,
// acceleration and CO2 plus the median cylinder count. Rows without a
// year are left out; years come back ascending.
func (a *Analyzer) Trends(view *dataset.Table) []domain.TrendPoint {
	yearCol, ok := view.Column(dataset.ColYear)
	if !ok {
		yearCol, ok = view.Column(dataset.ColYearFrom)
	}
	if !ok || yearCol.Kind() != dataset.KindFloat {
		return nil
	}

	groups := make(map[int][]int)
	for row := 0; row < view.NumRows(); row++ {
		if v := yearCol.Float(row); v.Valid {
			year := int(v.Value)
			groups[year] = append(groups[year], row)
		}
	}

	years := make([]int, 0, len(groups))
	for year := range groups {
		years = append(years, year)
	}
	sort.Ints(years)

	hpCol, _ := view.Column(dataset.ColEngineHP)
	accelCol, _ := view.Column(dataset.ColAcceleration)
	co2Col, _ := view.Column(dataset.ColCO2)
	cylCol, _ := view.Column(dataset.ColNumberOfCylinders)

	points := make([]domain.TrendPoint, 0, len(years))
	for _, year := range years {
		rows := groups[year]
		point := domain.TrendPoint{Year: year, Count: len(rows)}
		if hpCol != nil {
			point.MeanHP = roundPtr(meanPtr(hpCol, rows))
		}
		if accelCol != nil {
			point.MeanAccel = roundPtr(meanPtr(accelCol, rows))
		}
		if co2Col != nil {
			point.MeanCO2 = roundPtr(meanPtr(co2Col, rows))
		}
		if cylCol != nil {
			point.MedianCylinders = medianPtr(cylCol, rows)
		}
		points = append(points, point)
	}
	return points
}

// brandGroups indexes view rows by trimmed make, dropping unnamed rows.
func brandGroups(view *dataset.Table) (map[string][]int, []string) {
	makeCol, ok := view.Column(dataset.ColMake)
	if !ok {
		return nil, nil
	}
	groups := make(map[string][]int)
	for row := 0; row < view.NumRows(); row++ {
		name := strings.TrimSpace(makeCol.Text(row))
		if name == "" {
			continue
		}
		groups[name] = append(groups[name], row)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return groups, names
}

// BrandBattles compares brands: median horsepower (top 20 descending),
// median fuel consumption (top 20 ascending) and raw horsepower
// samples for brands with at least minDistributionRows entries.
func (a *Analyzer) BrandBattles(view *dataset.Table) domain.BrandBattles {
	const topBrands = 20

	groups, names := brandGroups(view)
	if len(groups) == 0 {
		return domain.BrandBattles{}
	}

	var battles domain.BrandBattles
	if hpCol, ok := view.Column(dataset.ColEngineHP); ok {
		battles.MedianHP = topBrandStats(groups, names, hpCol, topBrands, true)
		battles.Distributions = hpDistributions(groups, names, hpCol)
	}
	if fuelCol, ok := view.Column(dataset.ColMixedFuel); ok {
		battles.MedianFuel = topBrandStats(groups, names, fuelCol, topBrands, false)
	}
	return battles
}

// topBrandStats ranks brands by the median of col, best first.
func topBrandStats(groups map[string][]int, names []string, col *dataset.Column, limit int, descending bool) []domain.BrandStat {
	stats := make([]domain.BrandStat, 0, len(names))
	for _, name := range names {
		value, n := median(col, groups[name])
		if n == 0 {
			continue
		}
		stats = append(stats, domain.BrandStat{Make: name, Value: round2(value), Count: n})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Value != stats[j].Value {
			if descending {
				return stats[i].Value > stats[j].Value
			}
			return stats[i].Value < stats[j].Value
		}
		return stats[i].Make < stats[j].Make
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// minDistributionRows is the sample floor below which a brand's
// horsepower spread is too thin to plot.
const minDistributionRows = 50

func hpDistributions(groups map[string][]int, names []string, hpCol *dataset.Column) []domain.BrandDistribution {
	var out []domain.BrandDistribution
	for _, name := range names {
		var samples []float64
		for _, row := range groups[name] {
			if v := hpCol.Float(row); v.Valid {
				samples = append(samples, v.Value)
			}
		}
		if len(samples) < minDistributionRows {
			continue
		}
		out = append(out, domain.BrandDistribution{Make: name, Samples: samples})
	}
	return out
}

// roundPtr rounds an optional to two decimals, passing nil through.
func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}
