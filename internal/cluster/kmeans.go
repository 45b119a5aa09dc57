package cluster

import (
	"math"
	"math/rand"
)

type kmeansResult struct {
	assignments []int
	centroids   [][]float64
	iterations  int
	inertia     float64
}

// runKMeans is Lloyd's algorithm with k-means++ seeding on a fixed
// source, so the same input and k always produce the same clustering.
// Callers guarantee 1 <= k <= len(points).
func runKMeans(points [][]float64, k int, seed int64, maxIter int, tol float64) kmeansResult {
	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(points, k, rng)
	assignments := make([]int, len(points))

	iterations := 0
	for iter := 0; iter < maxIter; iter++ {
		iterations = iter + 1
		for i, p := range points {
			assignments[i] = nearestCentroid(p, centroids)
		}

		next := recomputeCentroids(points, assignments, centroids)
		shift := 0.0
		for c := range centroids {
			if d := math.Sqrt(squaredDistance(centroids[c], next[c])); d > shift {
				shift = d
			}
		}
		centroids = next
		if shift <= tol {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centroids[assignments[i]])
	}
	return kmeansResult{
		assignments: assignments,
		centroids:   centroids,
		iterations:  iterations,
		inertia:     inertia,
	}
}

// seedCentroids picks k starting centroids with the k-means++ scheme:
// the first uniformly, each next proportional to the squared distance
// from the nearest centroid chosen so far.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, copyVec(points[rng.Intn(len(points))]))

	dists := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			best := math.Inf(1)
			for _, c := range centroids {
				if d := squaredDistance(p, c); d < best {
					best = d
				}
			}
			dists[i] = best
			total += best
		}

		var chosen int
		if total == 0 {
			// Every point coincides with a centroid already.
			chosen = rng.Intn(len(points))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			chosen = len(points) - 1
			for i, d := range dists {
				acc += d
				if acc >= target {
					chosen = i
					break
				}
			}
		}
		centroids = append(centroids, copyVec(points[chosen]))
	}
	return centroids
}

// nearestCentroid returns the index of the closest centroid, lowest
// index winning ties.
func nearestCentroid(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// recomputeCentroids averages the members of each cluster. A cluster
// left without members captures the point farthest from its assigned
// centroid, so every cluster stays populated.
func recomputeCentroids(points [][]float64, assignments []int, centroids [][]float64) [][]float64 {
	k := len(centroids)
	d := len(points[0])

	next := make([][]float64, k)
	counts := make([]int, k)
	for c := range next {
		next[c] = make([]float64, d)
	}
	for i, p := range points {
		c := assignments[i]
		counts[c]++
		for j, v := range p {
			next[c][j] += v
		}
	}

	for c := range next {
		if counts[c] > 0 {
			continue
		}
		stolen := farthestPoint(points, assignments, centroids, counts)
		old := assignments[stolen]
		for j, v := range points[stolen] {
			next[old][j] -= v
		}
		counts[old]--
		assignments[stolen] = c
		counts[c] = 1
		next[c] = copyVec(points[stolen])
	}

	for c := range next {
		for j := range next[c] {
			next[c][j] /= float64(counts[c])
		}
	}
	return next
}

// farthestPoint finds the point with the greatest distance to its own
// centroid among clusters that can spare a member.
func farthestPoint(points [][]float64, assignments []int, centroids [][]float64, counts []int) int {
	best, bestDist := 0, -1.0
	for i, p := range points {
		if counts[assignments[i]] <= 1 {
			continue
		}
		if d := squaredDistance(p, centroids[assignments[i]]); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func copyVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
