// Package anonymize implements KACA (K-Anonymity Clustering Algorithm) for
// toll-road exit transactions. One invocation is one pass over one batch:
// quasi-identifiers are encoded into numeric features, the batch is
// partitioned by k-means, under-sized clusters are merged until every
// surviving cluster holds at least k records, and each cluster's original
// quasi-identifiers are generalized into one shared (region, period) label
// pair. The pipeline performs no I/O and is deterministic for a fixed batch.
package anonymize

import (
	"fmt"
	"sort"
)

// Algorithm is the marker attached to every released record.
const Algorithm = "KACA"

// DefaultK is the equivalence-class size floor used when the caller does not
// supply one.
const DefaultK = 5

// Anonymizer runs the KACA pipeline with a fixed k. It holds no mutable
// state across invocations, so one Anonymizer may serve concurrent batches.
type Anonymizer struct {
	K           int
	Partitioner Partitioner
}

// New returns an Anonymizer for the given k. Values of k below 1 fall back
// to DefaultK.
func New(k int) *Anonymizer {
	if k < 1 {
		k = DefaultK
	}
	return &Anonymizer{K: k, Partitioner: DefaultKMeans()}
}

// Anonymize transforms one batch of records into a k-anonymous release.
//
// Every input record appears in the output exactly once, grouped by
// ascending cluster label with input order preserved within a cluster. The
// k-anonymity guarantee is conditional on len(records) >= k: a smaller batch
// is released best-effort as a single under-sized equivalence class with
// SuppressedCount zero rather than being dropped. A partitioner failure is
// fatal to the invocation; no partial result is returned.
func (a *Anonymizer) Anonymize(records []Record) (*Result, error) {
	if len(records) == 0 {
		return &Result{Records: []AnonymizedRecord{}}, nil
	}

	points := featureVectors(records)

	nClusters := len(records) / a.K
	if nClusters < 1 {
		nClusters = 1
	}

	var labels []int
	if nClusters == 1 {
		labels = make([]int, len(records))
	} else {
		var err error
		labels, err = a.Partitioner.Partition(points, nClusters)
		if err != nil {
			return nil, fmt.Errorf("failed to partition records: %w", err)
		}
	}

	labels = repairClusters(points, labels, a.K)

	// Group record indices by final label, preserving input order within
	// each cluster.
	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	ordered := make([]int, 0, len(groups))
	for l := range groups {
		ordered = append(ordered, l)
	}
	sort.Ints(ordered)

	result := &Result{
		Records:      make([]AnonymizedRecord, 0, len(records)),
		TotalRecords: len(records),
	}
	for _, l := range ordered {
		members := make([]Record, len(groups[l]))
		for i, idx := range groups[l] {
			members[i] = records[idx]
		}

		region := generalizeRegion(members)
		period := generalizeTimePeriod(members)
		result.EquivalenceClasses++

		for _, m := range members {
			result.Records = append(result.Records, release(m, region, period))
		}
	}

	return result, nil
}
