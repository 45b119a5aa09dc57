package domain

// Cluster label vocabulary. Labels are assigned per cluster from its
// centroid in standardized feature space, first matching rule wins.
const (
	ClusterLabelEfficient  = "Efficient"
	ClusterLabelHighPower  = "High Power"
	ClusterLabelQuickAccel = "Quick Accel"
	ClusterLabelBigCyl     = "Big Cyl"
	ClusterLabelBalanced   = "Balanced"
)

// ClusterSummary describes one cluster of the current clustering run:
// member count and the mean of each clustering feature in original
// units, rounded to two decimals.
type ClusterSummary struct {
	ClusterID     int     `json:"cluster_id"`
	Name          string  `json:"cluster_name"`
	Count         int     `json:"count"`
	MeanHP        float64 `json:"mean_hp"`
	MeanAccel     float64 `json:"mean_accel_s"`
	MeanFuel      float64 `json:"mean_fuel_l_100km"`
	MeanCylinders float64 `json:"mean_cylinders"`
}

// ClusterPoint is one clustered engine as consumed by the scatter
// plot: projection coordinates plus identity fields.
type ClusterPoint struct {
	ClusterID int     `json:"cluster_id"`
	Name      string  `json:"cluster_name"`
	PCAX      float64 `json:"pca_x"`
	PCAY      float64 `json:"pca_y"`
	Signature string  `json:"engine_signature,omitempty"`
	Make      string  `json:"make,omitempty"`
	Model     string  `json:"model,omitempty"`
}

// ClusterResult is the full response of a clustering run.
type ClusterResult struct {
	K         int              `json:"k"`
	Rows      int              `json:"rows"`
	Points    []ClusterPoint   `json:"points"`
	Summaries []ClusterSummary `json:"summaries"`
}
