package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKMeans(t *testing.T) {
	t.Run("recovers well separated groups", func(t *testing.T) {
		points := [][]float64{
			{0, 0}, {0.2, 0}, {0, 0.2},
			{10, 10}, {10.2, 10}, {10, 10.2},
		}

		got := runKMeans(points, 2, 42, 300, 1e-4)

		require.Len(t, got.assignments, 6)
		first := got.assignments[0]
		second := got.assignments[3]
		assert.NotEqual(t, first, second)
		assert.Equal(t, []int{first, first, first, second, second, second}, got.assignments)

		// Centroids are the group means, order independent.
		var lowMean, highMean []float64
		if got.centroids[first][0] < got.centroids[second][0] {
			lowMean, highMean = got.centroids[first], got.centroids[second]
		} else {
			lowMean, highMean = got.centroids[second], got.centroids[first]
		}
		assert.InDelta(t, 0.0667, lowMean[0], 1e-3)
		assert.InDelta(t, 10.0667, highMean[0], 1e-3)
	})

	t.Run("single cluster is the global mean", func(t *testing.T) {
		points := [][]float64{{1, 1}, {3, 3}, {5, 5}}

		got := runKMeans(points, 1, 42, 300, 1e-4)

		assert.Equal(t, []int{0, 0, 0}, got.assignments)
		assert.InDelta(t, 3, got.centroids[0][0], 1e-9)
		assert.InDelta(t, 3, got.centroids[0][1], 1e-9)
	})

	t.Run("same seed means same result", func(t *testing.T) {
		points := [][]float64{
			{1, 2}, {2, 1}, {8, 9}, {9, 8}, {4, 5}, {5, 4},
		}

		a := runKMeans(points, 3, 42, 300, 1e-4)
		b := runKMeans(points, 3, 42, 300, 1e-4)

		assert.Equal(t, a.assignments, b.assignments)
		assert.Equal(t, a.centroids, b.centroids)
		assert.Equal(t, a.inertia, b.inertia)
	})

	t.Run("no cluster is left empty", func(t *testing.T) {
		// Identical points force every extra centroid to start empty.
		points := [][]float64{{1, 1}, {1, 1}, {1, 1}}

		got := runKMeans(points, 3, 42, 300, 1e-4)

		seen := map[int]int{}
		for _, c := range got.assignments {
			seen[c]++
		}
		assert.Len(t, seen, 3)
		assert.Equal(t, 0.0, got.inertia)
	})

	t.Run("inertia is the within cluster spread", func(t *testing.T) {
		points := [][]float64{{0, 0}, {2, 0}}

		got := runKMeans(points, 1, 42, 300, 1e-4)

		// Both points sit 1 away from the centroid (1, 0).
		assert.InDelta(t, 2.0, got.inertia, 1e-9)
	})
}
