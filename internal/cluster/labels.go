package cluster

import (
	"engineatlas/pkg/contracts/domain"
)

// labelRules name a cluster from its centroid in standardized feature
// space. Evaluated top to bottom, first match wins; the thresholds
// are part of the product contract and must not be reordered.
var labelRules = []struct {
	feature   int
	below     bool
	threshold float64
	name      string
}{
	{feature: featureFuel, below: true, threshold: -0.5, name: domain.ClusterLabelEfficient},
	{feature: featureHP, below: false, threshold: 0.7, name: domain.ClusterLabelHighPower},
	{feature: featureAccel, below: true, threshold: -0.3, name: domain.ClusterLabelQuickAccel},
	{feature: featureCylinders, below: false, threshold: 0.6, name: domain.ClusterLabelBigCyl},
}

// LabelCentroid names a single centroid given in standardized feature
// space, ordered as FeatureColumns.
func LabelCentroid(centroid []float64) string {
	for _, rule := range labelRules {
		v := centroid[rule.feature]
		if rule.below && v < rule.threshold {
			return rule.name
		}
		if !rule.below && v > rule.threshold {
			return rule.name
		}
	}
	return domain.ClusterLabelBalanced
}
