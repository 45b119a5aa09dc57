package domain

// TrendPoint aggregates one model year across the filtered view.
type TrendPoint struct {
	Year            int      `json:"year"`
	MeanHP          *float64 `json:"mean_hp,omitempty"`
	MeanAccel       *float64 `json:"mean_accel_s,omitempty"`
	MeanCO2         *float64 `json:"mean_co2_g_km,omitempty"`
	MedianCylinders *float64 `json:"median_cylinders,omitempty"`
	Count           int      `json:"count"`
}

// BrandStat is one brand's aggregate for a single metric.
type BrandStat struct {
	Make  string  `json:"make"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// BrandDistribution carries the raw horsepower samples for one brand,
// used by the dashboard's distribution plot. Only brands with enough
// rows are included.
type BrandDistribution struct {
	Make    string    `json:"make"`
	Samples []float64 `json:"samples"`
}

// BrandBattles bundles the brand comparison aggregates: median
// horsepower (top 20, descending), median fuel consumption (top 20,
// ascending) and horsepower distributions for well-represented brands.
type BrandBattles struct {
	MedianHP      []BrandStat         `json:"median_hp"`
	MedianFuel    []BrandStat         `json:"median_fuel"`
	Distributions []BrandDistribution `json:"hp_distributions"`
}

// LeaderboardEntry is one ranked engine, keyed by its signature.
type LeaderboardEntry struct {
	Signature string  `json:"engine_signature"`
	Make      string  `json:"make"`
	Model     string  `json:"model,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Value     float64 `json:"value"`
}

// Leaderboards carries the five top-15 rankings shown on the best
// engines page.
type Leaderboards struct {
	Fastest          []LeaderboardEntry `json:"fastest"`
	MostPowerful     []LeaderboardEntry `json:"most_powerful"`
	MostEfficient    []LeaderboardEntry `json:"most_efficient"`
	BestPowerDensity []LeaderboardEntry `json:"best_hp_per_liter"`
	BestBalanced     []LeaderboardEntry `json:"best_balanced"`
}
