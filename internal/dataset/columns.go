package dataset

// Canonical column names shared by the pipeline stages, the cluster
// engine and the analytics aggregations. These are the post-normalizer
// spellings; raw headers map onto them during cleaning.
const (
	ColMake           = "make"
	ColModel          = "model"
	ColTrim           = "trim"
	ColSeries         = "series"
	ColEngineType     = "engine_type"
	ColCylinderLayout = "cylinder_layout"

	ColYearFrom = "year_from"
	ColYearTo   = "year_to"

	ColEngineHP          = "engine_hp"
	ColEngineHPRPM       = "engine_hp_rpm"
	ColMaxPowerKW        = "max_power_kw"
	ColMaxTorqueNM       = "maximum_torque_n_m"
	ColAcceleration      = "acceleration_0_100_km_h_s"
	ColMixedFuel         = "mixed_fuel_consumption_per_100_km_l"
	ColCityFuel          = "city_fuel_per_100km_l"
	ColHighwayFuel       = "highway_fuel_per_100km_l"
	ColCO2               = "co2_emissions_g_km"
	ColBatteryCapacity   = "battery_capacity_kw_per_h"
	ColElectricRange     = "electric_range_km"
	ColChargingTime      = "charging_time_h"
	ColNumberOfCylinders = "number_of_cylinders"
	ColValvesPerCylinder = "valves_per_cylinder"

	ColBoreStrokeCombined = "cylinder_bore_and_stroke_cycle_mm"
	ColCylinderBore       = "cylinder_bore_mm"
	ColCapacityCM3        = "capacity_cm3"

	// Derived by the feature engineering stage.
	ColYear            = "year"
	ColBoreMM          = "bore_mm"
	ColStrokeMM        = "stroke_mm"
	ColDisplacementL   = "displacement_l"
	ColHPPerLiter      = "hp_per_liter"
	ColEngineSignature = "engine_signature"
	ColBalancedScore   = "balanced_score"

	// Attached by the cluster engine to its augmented view.
	ColClusterID   = "cluster_id"
	ColPCAX        = "pca_x"
	ColPCAY        = "pca_y"
	ColClusterName = "cluster_name"
)
