package domain

import (
	"time"
)

// DatasetInfo describes the currently loaded canonical dataset.
type DatasetInfo struct {
	Path     string    `json:"path"`
	Rows     int       `json:"rows"`
	Columns  int       `json:"columns"`
	Checksum string    `json:"checksum"`
	LoadedAt time.Time `json:"loaded_at"`
	SizeBytes int64    `json:"size_bytes"`
}

// ColumnMissing reports the number of missing cells in one column.
type ColumnMissing struct {
	Column  string `json:"column"`
	Missing int    `json:"missing"`
}

// SchemaReport summarizes table shape and per-column missingness,
// ordered by missing count descending.
type SchemaReport struct {
	Rows    int             `json:"rows"`
	Cols    int             `json:"cols"`
	Missing []ColumnMissing `json:"missing_by_column"`
}

// FilterOptions enumerates the selectable values the dashboard offers
// for narrowing the canonical dataset.
type FilterOptions struct {
	Makes       []string `json:"makes"`
	YearMin     int      `json:"year_min"`
	YearMax     int      `json:"year_max"`
	EngineTypes []string `json:"engine_types"`
	Cylinders   []int    `json:"cylinders"`
}

// RecordPage is one page of canonical records. Each record maps column
// name to value; missing numeric cells serialize as null.
type RecordPage struct {
	Records []map[string]interface{} `json:"records"`
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}
