package analytics

import (
	"math"
	"sort"

	"engineatlas/internal/dataset"
)

// mean averages the present values among the given rows. The second
// return is the number of values that contributed.
func mean(col *dataset.Column, rows []int) (float64, int) {
	sum, n := 0.0, 0
	for _, row := range rows {
		if v := col.Float(row); v.Valid {
			sum += v.Value
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// median returns the middle of the present values among the given
// rows, averaging the two central values for even counts.
func median(col *dataset.Column, rows []int) (float64, int) {
	var values []float64
	for _, row := range rows {
		if v := col.Float(row); v.Valid {
			values = append(values, v.Value)
		}
	}
	if len(values) == 0 {
		return 0, 0
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid], len(values)
	}
	return (values[mid-1] + values[mid]) / 2, len(values)
}

// meanPtr is mean as an optional, nil when nothing contributed.
func meanPtr(col *dataset.Column, rows []int) *float64 {
	v, n := mean(col, rows)
	if n == 0 {
		return nil
	}
	return &v
}

// medianPtr is median as an optional, nil when nothing contributed.
func medianPtr(col *dataset.Column, rows []int) *float64 {
	v, n := median(col, rows)
	if n == 0 {
		return nil
	}
	return &v
}

// round2 rounds to two decimals for display payloads.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// allRows enumerates 0..n-1 once, shared by the whole-view aggregates.
func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
