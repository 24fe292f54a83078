// Package cluster implements the adaptive spatial clustering engine:
// pluggable grouping strategies over a grid spatial index, per-cluster
// attribute aggregation, and a stateless orchestrator with
// deterministic output.
//
// The engine is synchronous and performs no I/O; one Cluster call runs
// to completion on the calling goroutine. Each call allocates its own
// index and visited set, so a single Manager may be shared freely as
// long as each call's inputs are not mutated mid-call.
package cluster

import (
	"strings"

	"github.com/google/uuid"

	"github.com/parcelboard/mapcluster/internal/geom"
)

// clusterIDNamespace is the fixed UUIDv5 namespace for cluster IDs.
// Hashing member feature IDs under a constant namespace makes cluster
// IDs a pure function of membership, so repeated runs over the same
// inputs produce the same IDs.
var clusterIDNamespace = uuid.MustParse("9643d4ee-95b9-4c3c-8f52-6b0b72a2f1d4")

// Cluster is one output group: a centroid, the member features in
// their original input order, and rolled-up attribute statistics.
// Clusters are created fresh on every call and never mutated after
// construction.
type Cluster struct {
	ID         string
	Centroid   geom.Point
	Count      int
	Features   []Feature
	Attributes map[string]AttributeStats
}

// Result is the output of one clustering call. The multiset union of
// all cluster members, Unclustered, and Skipped equals the input
// feature set exactly.
type Result struct {
	// Clusters sorted by Count descending, ties by ID ascending, so a
	// renderer can draw larger clusters first.
	Clusters []Cluster
	// Unclustered holds passthrough singletons in original input order.
	Unclustered []Feature
	// Skipped holds features excluded for missing or non-finite
	// coordinates, in original input order.
	Skipped []Feature
	// Strategy is the concrete strategy that ran (never adaptive);
	// empty when clustering was disabled by the zoom escape valve.
	Strategy Strategy
}

// newCluster assembles a cluster from its members: deterministic ID,
// mean-position centroid, and aggregated attributes.
func newCluster(members []Feature) Cluster {
	ids := make([]string, len(members))
	var sumX, sumY float64
	for i, f := range members {
		ids[i] = f.ID
		sumX += f.X
		sumY += f.Y
	}
	n := float64(len(members))

	return Cluster{
		ID:         uuid.NewSHA1(clusterIDNamespace, []byte(strings.Join(ids, "\x00"))).String(),
		Centroid:   geom.Point{X: sumX / n, Y: sumY / n},
		Count:      len(members),
		Features:   members,
		Attributes: aggregateAttributes(members),
	}
}
