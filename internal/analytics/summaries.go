package analytics

import (
	"sort"

	"engineatlas/internal/dataset"
	"engineatlas/pkg/contracts/domain"
)

// ClusterSummaries condenses a clustered table into one row per
// cluster: name, member count and the mean of each clustering feature
// in original units, rounded to two decimals. Clusters come back
// ordered by id.
func (a *Analyzer) ClusterSummaries(clustered *dataset.Table) []domain.ClusterSummary {
	idCol, ok := clustered.Column(dataset.ColClusterID)
	if !ok || idCol.Kind() != dataset.KindFloat {
		return nil
	}
	nameCol, _ := clustered.Column(dataset.ColClusterName)

	groups := make(map[int][]int)
	for row := 0; row < clustered.NumRows(); row++ {
		if v := idCol.Float(row); v.Valid {
			id := int(v.Value)
			groups[id] = append(groups[id], row)
		}
	}
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	hpCol, _ := clustered.Column(dataset.ColEngineHP)
	accelCol, _ := clustered.Column(dataset.ColAcceleration)
	fuelCol, _ := clustered.Column(dataset.ColMixedFuel)
	cylCol, _ := clustered.Column(dataset.ColNumberOfCylinders)

	summaries := make([]domain.ClusterSummary, 0, len(ids))
	for _, id := range ids {
		rows := groups[id]
		summary := domain.ClusterSummary{ClusterID: id, Count: len(rows)}
		if nameCol != nil && len(rows) > 0 {
			summary.Name = nameCol.Text(rows[0])
		}
		if hpCol != nil {
			v, _ := mean(hpCol, rows)
			summary.MeanHP = round2(v)
		}
		if accelCol != nil {
			v, _ := mean(accelCol, rows)
			summary.MeanAccel = round2(v)
		}
		if fuelCol != nil {
			v, _ := mean(fuelCol, rows)
			summary.MeanFuel = round2(v)
		}
		if cylCol != nil {
			v, _ := mean(cylCol, rows)
			summary.MeanCylinders = round2(v)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
