package anonymize

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// repairClusters merges under-sized clusters until every surviving cluster
// has at least k members, or until only one cluster remains (the n < k
// case). Each pass merges the smallest cluster into its nearest surviving
// neighbour by current centroid distance, so the loop removes exactly one
// label per pass and terminates after at most nClusters-1 merges.
//
// Centroids are recomputed from the current membership on every pass: after
// a merge the target cluster's shape changes, and so does the best next
// partner. Ties for both the smallest cluster and the nearest neighbour go
// to the lowest label to keep the result deterministic.
func repairClusters(points [][]float64, labels []int, k int) []int {
	out := make([]int, len(labels))
	copy(out, labels)

	for {
		sizes := clusterSizes(out)
		if len(sizes) <= 1 {
			return out
		}

		source, ok := smallestUndersized(sizes, k)
		if !ok {
			return out
		}

		target := nearestCluster(points, out, source)
		for i, l := range out {
			if l == source {
				out[i] = target
			}
		}
	}
}

// clusterSizes counts members per surviving label.
func clusterSizes(labels []int) map[int]int {
	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	return sizes
}

// smallestUndersized returns the label of the smallest cluster when at least
// one cluster has fewer than k members. Ties break to the lowest label.
func smallestUndersized(sizes map[int]int, k int) (int, bool) {
	ordered := make([]int, 0, len(sizes))
	for l := range sizes {
		ordered = append(ordered, l)
	}
	sort.Ints(ordered)

	best := -1
	bestSize := math.MaxInt
	for _, l := range ordered {
		if sizes[l] < bestSize {
			bestSize = sizes[l]
			best = l
		}
	}
	if bestSize >= k {
		return 0, false
	}
	return best, true
}

// nearestCluster finds the surviving cluster whose current centroid is
// closest to the source cluster's current centroid. Ties break to the
// lowest label.
func nearestCluster(points [][]float64, labels []int, source int) int {
	centroids := currentCentroids(points, labels)

	srcCentroid := centroids[source]
	ordered := make([]int, 0, len(centroids))
	for l := range centroids {
		if l != source {
			ordered = append(ordered, l)
		}
	}
	sort.Ints(ordered)

	best := ordered[0]
	bestDist := math.Inf(1)
	for _, l := range ordered {
		if d := floats.Distance(srcCentroid, centroids[l], 2); d < bestDist {
			bestDist = d
			best = l
		}
	}
	return best
}

// currentCentroids computes the mean feature vector of every surviving
// cluster from the current labelling.
func currentCentroids(points [][]float64, labels []int) map[int][]float64 {
	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, l := range labels {
		if sums[l] == nil {
			sums[l] = make([]float64, len(points[i]))
		}
		floats.Add(sums[l], points[i])
		counts[l]++
	}
	for l, sum := range sums {
		floats.Scale(1/float64(counts[l]), sum)
	}
	return sums
}
