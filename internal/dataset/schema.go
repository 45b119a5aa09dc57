package dataset

import (
	"sort"

	"engineatlas/pkg/contracts/domain"
)

// BuildSchemaReport summarizes shape and per-column missingness,
// ordered by missing count descending (ties keep column order).
func BuildSchemaReport(t *Table) domain.SchemaReport {
	missing := make([]domain.ColumnMissing, 0, t.NumCols())
	for i := 0; i < t.NumCols(); i++ {
		c := t.ColumnAt(i)
		missing = append(missing, domain.ColumnMissing{
			Column:  c.Name(),
			Missing: c.MissingCount(),
		})
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].Missing > missing[j].Missing
	})
	return domain.SchemaReport{
		Rows:    t.NumRows(),
		Cols:    t.NumCols(),
		Missing: missing,
	}
}
