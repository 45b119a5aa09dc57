package domain

// EngineLayoutKind classifies a cylinder arrangement for the DNA card
// schematic.
type EngineLayoutKind string

const (
	EngineLayoutInline EngineLayoutKind = "inline"
	EngineLayoutV      EngineLayoutKind = "v"
	EngineLayoutBoxer  EngineLayoutKind = "boxer"
)

// EngineLayout is the schematic geometry derived from a free-text
// cylinder layout and a cylinder count clamped to a drawable range.
type EngineLayout struct {
	Kind      EngineLayoutKind `json:"kind"`
	Cylinders int              `json:"cylinders"`
}

// EngineCard is the "engine DNA" card shown for the representative
// engine of the current filtered view. Nil pointers mean the value is
// missing in the source record.
type EngineCard struct {
	Make           string       `json:"make"`
	Model          string       `json:"model"`
	Trim           string       `json:"trim"`
	EngineType     string       `json:"engine_type"`
	CylinderLayout string       `json:"cylinder_layout"`
	Cylinders      *float64     `json:"cylinders,omitempty"`
	HP             *float64     `json:"hp,omitempty"`
	DisplacementL  *float64     `json:"displacement_l,omitempty"`
	AccelSec       *float64     `json:"accel_s,omitempty"`
	FuelL100KM     *float64     `json:"fuel_l_100km,omitempty"`
	Layout         EngineLayout `json:"layout"`
	ImageQueries   []string     `json:"image_queries,omitempty"`
}

// OverviewStats summarizes the filtered view for the dashboard header.
type OverviewStats struct {
	Rows     int      `json:"rows"`
	AvgHP    *float64 `json:"avg_hp,omitempty"`
	AvgAccel *float64 `json:"avg_accel_s,omitempty"`
	AvgCO2   *float64 `json:"avg_co2_g_km,omitempty"`
}
