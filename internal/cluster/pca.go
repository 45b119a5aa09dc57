package cluster

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// pcaScores projects the rows of x onto their first principal
// components via thin SVD. Components carry a fixed sign: the feature
// loading with the largest magnitude is made positive, so repeated
// runs plot identically. When x has fewer usable components than
// requested the remaining score columns are zero.
func pcaScores(x [][]float64, components int) ([][]float64, error) {
	n := len(x)
	if n == 0 {
		return nil, errors.New("no rows to project")
	}
	d := len(x[0])

	// SVD requires column-centered data; clustering input is already
	// standardized but cheap to enforce here.
	means := make([]float64, d)
	for _, row := range x {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	dense := mat.NewDense(n, d, nil)
	for i, row := range x {
		for j, v := range row {
			dense.Set(i, j, v-means[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(dense, mat.SVDThin); !ok {
		return nil, errors.New("svd did not converge")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	singular := svd.Values(nil)

	available := len(singular)
	if available > components {
		available = components
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, components)
	}
	for j := 0; j < available; j++ {
		sign := 1.0
		maxAbs := 0.0
		for f := 0; f < d; f++ {
			if a := math.Abs(v.At(f, j)); a > maxAbs {
				maxAbs = a
				if v.At(f, j) < 0 {
					sign = -1.0
				} else {
					sign = 1.0
				}
			}
		}
		for i := 0; i < n; i++ {
			scores[i][j] = sign * u.At(i, j) * singular[j]
		}
	}
	return scores, nil
}
