package cluster

import (
	"sort"

	"github.com/parcelboard/mapcluster/internal/geom"
	"github.com/parcelboard/mapcluster/internal/spatial"
)

// Manager is the public entry point for clustering. It carries no
// state between calls: Cluster is a pure function of its three inputs,
// so identical arguments always produce structurally identical results.
// Instantiate fresh per call or keep one long-lived instance; behavior
// is the same.
type Manager struct{}

// NewManager returns a clustering manager.
func NewManager() *Manager {
	return &Manager{}
}

// Cluster groups features under cfg for the given view.
//
// Validation happens first with no partial side effects: an invalid
// config returns an *InvalidConfigError and nothing else. Features
// with non-finite coordinates are diverted to Result.Skipped rather
// than aborting the batch. An empty input is a valid case and returns
// an empty Result.
func (m *Manager) Cluster(features []Feature, cfg Config, view View) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	if len(features) == 0 {
		return Result{}, nil
	}

	valid := make([]Feature, 0, len(features))
	var skipped []Feature
	for _, f := range features {
		if f.hasValidCoords() {
			valid = append(valid, f)
		} else {
			skipped = append(skipped, f)
		}
	}

	// Zoom escape valve: at or above MaxZoom every feature renders
	// individually regardless of strategy or MinPoints.
	if view.Zoom >= cfg.MaxZoom {
		return Result{Unclustered: valid, Skipped: skipped}, nil
	}

	if len(valid) == 0 {
		return Result{Skipped: skipped}, nil
	}

	idx := buildIndex(valid, view, cfg)

	strat := cfg.Strategy
	if strat == StrategyAdaptive {
		strat = pickStrategy(valid, cfg, idx)
	}
	groups := strategyFor(strat).groups(valid, cfg, idx)

	var clusters []Cluster
	var singletonIdx []int
	for _, group := range groups {
		if len(group) >= cfg.MinPoints {
			members := make([]Feature, len(group))
			for i, j := range group {
				members[i] = valid[j]
			}
			clusters = append(clusters, newCluster(members))
		} else {
			singletonIdx = append(singletonIdx, group...)
		}
	}

	// Passthrough singletons go out in original input order even when
	// groups demoted them out of sequence.
	sort.Ints(singletonIdx)
	var unclustered []Feature
	for _, j := range singletonIdx {
		unclustered = append(unclustered, valid[j])
	}

	// Biggest cluster first; ID breaks ties so the order is total.
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].ID < clusters[j].ID
	})

	return Result{
		Clusters:    clusters,
		Unclustered: unclustered,
		Skipped:     skipped,
		Strategy:    strat,
	}, nil
}

// buildIndex constructs the spatial index over the valid features,
// scoped to the view extent with the configured grid size.
func buildIndex(feats []Feature, view View, cfg Config) *spatial.Index {
	points := make([]geom.Point, len(feats))
	for i, f := range feats {
		points[i] = f.Point()
	}
	return spatial.New(points, view.Extent, cfg.GridSize)
}
