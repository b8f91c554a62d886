package anonymize

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Partitioner splits a set of points into nClusters groups and returns one
// cluster label per point. Implementations must be deterministic for a fixed
// configuration so that repeated anonymization runs over the same batch
// produce identical groupings.
type Partitioner interface {
	Partition(points [][]float64, nClusters int) ([]int, error)
}

// KMeans is the default Partitioner: Lloyd's algorithm with k-means++
// seeding. All randomness comes from Seed, so the same input always yields
// the same labels.
type KMeans struct {
	Seed     int64
	MaxIter  int
	Tol      float64
	Restarts int
}

// DefaultKMeans returns the k-means configuration used by the anonymizer.
func DefaultKMeans() *KMeans {
	return &KMeans{Seed: 42, MaxIter: 100, Tol: 1e-4, Restarts: 10}
}

// Partition runs k-means over the points and returns the best-of-Restarts
// labelling by inertia (sum of squared distances to assigned centroids).
func (km *KMeans) Partition(points [][]float64, nClusters int) ([]int, error) {
	if nClusters <= 0 {
		return nil, fmt.Errorf("invalid cluster count %d", nClusters)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no points to partition")
	}
	if nClusters > len(points) {
		return nil, fmt.Errorf("cluster count %d exceeds point count %d", nClusters, len(points))
	}

	restarts := km.Restarts
	if restarts < 1 {
		restarts = 1
	}

	rng := rand.New(rand.NewSource(km.Seed))

	var bestLabels []int
	bestInertia := math.Inf(1)
	for r := 0; r < restarts; r++ {
		labels, inertia := km.run(points, nClusters, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestLabels = labels
		}
	}
	return bestLabels, nil
}

// run performs one k-means++ initialization plus Lloyd iterations.
func (km *KMeans) run(points [][]float64, nClusters int, rng *rand.Rand) ([]int, float64) {
	centroids := km.seedCentroids(points, nClusters, rng)
	labels := make([]int, len(points))

	maxIter := km.MaxIter
	if maxIter < 1 {
		maxIter = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		// Assignment step. Ties go to the lowest centroid index because
		// only a strictly smaller distance replaces the current choice.
		for i, p := range points {
			best := 0
			bestDist := sqDist(p, centroids[0])
			for c := 1; c < nClusters; c++ {
				if d := sqDist(p, centroids[c]); d < bestDist {
					bestDist = d
					best = c
				}
			}
			labels[i] = best
		}

		// Update step: recompute centroids as member means.
		counts := make([]int, nClusters)
		next := make([][]float64, nClusters)
		for c := range next {
			next[c] = make([]float64, len(points[0]))
		}
		for i, p := range points {
			counts[labels[i]]++
			floats.Add(next[labels[i]], p)
		}
		for c := range next {
			if counts[c] == 0 {
				// Reseed an empty cluster from the point farthest from its
				// current centroid so every cluster stays populated.
				far := farthestPoint(points, labels, centroids)
				copy(next[c], points[far])
				labels[far] = c
				counts[c] = 1
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		// Convergence check on the largest centroid shift.
		shift := 0.0
		for c := range centroids {
			if d := math.Sqrt(sqDist(centroids[c], next[c])); d > shift {
				shift = d
			}
		}
		centroids = next
		if shift <= km.Tol {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return labels, inertia
}

// seedCentroids picks initial centroids with k-means++: the first uniformly
// at random, each subsequent one weighted by squared distance to the nearest
// centroid already chosen.
func (km *KMeans) seedCentroids(points [][]float64, nClusters int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, nClusters)
	first := append([]float64(nil), points[rng.Intn(len(points))]...)
	centroids = append(centroids, first)

	dists := make([]float64, len(points))
	for len(centroids) < nClusters {
		total := 0.0
		for i, p := range points {
			d := sqDist(p, centroids[0])
			for _, c := range centroids[1:] {
				if d2 := sqDist(p, c); d2 < d {
					d = d2
				}
			}
			dists[i] = d
			total += d
		}

		var idx int
		if total == 0 {
			// All points coincide with existing centroids; fall back to a
			// uniform draw.
			idx = rng.Intn(len(points))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range dists {
				acc += d
				if acc >= target {
					idx = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), points[idx]...))
	}
	return centroids
}

// farthestPoint returns the index of the point with the largest distance to
// its assigned centroid.
func farthestPoint(points [][]float64, labels []int, centroids [][]float64) int {
	far := 0
	farDist := -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > farDist {
			farDist = d
			far = i
		}
	}
	return far
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
