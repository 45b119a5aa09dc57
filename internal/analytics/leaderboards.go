package analytics

import (
	"sort"
	"strings"

	"engineatlas/internal/dataset"
	"engineatlas/pkg/contracts/domain"
)

// leaderboardSize caps every ranking on the best engines page.
const leaderboardSize = 15

// Leaderboards ranks the view's engines five ways. Each board keeps
// the best row per engine signature so one engine family cannot fill
// a board with its trims.
func (a *Analyzer) Leaderboards(view *dataset.Table) domain.Leaderboards {
	return domain.Leaderboards{
		Fastest:          rankBy(view, dataset.ColAcceleration, false),
		MostPowerful:     rankBy(view, dataset.ColEngineHP, true),
		MostEfficient:    rankBy(view, dataset.ColMixedFuel, false),
		BestPowerDensity: rankBy(view, dataset.ColHPPerLiter, true),
		BestBalanced:     rankBy(view, dataset.ColBalancedScore, true),
	}
}

// rankBy builds one leaderboard over the rows where metric is
// present: sort (stable, signature breaking ties), deduplicate by
// signature, cut to size.
func rankBy(view *dataset.Table, metric string, descending bool) []domain.LeaderboardEntry {
	col, ok := view.Column(metric)
	if !ok || col.Kind() != dataset.KindFloat {
		return nil
	}

	sigCol, _ := view.Column(dataset.ColEngineSignature)
	makeCol, _ := view.Column(dataset.ColMake)
	modelCol, _ := view.Column(dataset.ColModel)
	yearCol, _ := view.Column(dataset.ColYear)
	if yearCol == nil {
		yearCol, _ = view.Column(dataset.ColYearFrom)
	}

	type candidate struct {
		row   int
		value float64
		sig   string
	}
	var candidates []candidate
	for row := 0; row < view.NumRows(); row++ {
		v := col.Float(row)
		if !v.Valid {
			continue
		}
		sig := ""
		if sigCol != nil {
			sig = strings.TrimSpace(sigCol.Text(row))
		}
		candidates = append(candidates, candidate{row: row, value: v.Value, sig: sig})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].value != candidates[j].value {
			if descending {
				return candidates[i].value > candidates[j].value
			}
			return candidates[i].value < candidates[j].value
		}
		return candidates[i].sig < candidates[j].sig
	})

	seen := make(map[string]struct{}, leaderboardSize)
	entries := make([]domain.LeaderboardEntry, 0, leaderboardSize)
	for _, c := range candidates {
		if c.sig != "" {
			if _, dup := seen[c.sig]; dup {
				continue
			}
			seen[c.sig] = struct{}{}
		}
		entry := domain.LeaderboardEntry{Signature: c.sig, Value: round2(c.value)}
		if makeCol != nil {
			entry.Make = strings.TrimSpace(makeCol.Text(c.row))
		}
		if modelCol != nil {
			entry.Model = strings.TrimSpace(modelCol.Text(c.row))
		}
		if yearCol != nil {
			if y := yearCol.Float(c.row); y.Valid {
				year := int(y.Value)
				entry.Year = &year
			}
		}
		entries = append(entries, entry)
		if len(entries) == leaderboardSize {
			break
		}
	}
	return entries
}
