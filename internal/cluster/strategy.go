package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/parcelboard/mapcluster/internal/spatial"
)

// Tunable constants for the adaptive dispatcher. The rule ordering in
// pickStrategy is a deliberate policy (bounded latency beats cluster
// quality at extreme scale) and must not be reordered; these thresholds
// are the parts that may be tuned.
const (
	// GridCutoff is the input size above which the adaptive dispatcher
	// always selects the grid strategy for its bounded-cost guarantee.
	GridCutoff = 5000
	// DensitySpreadRatio is the max/min local density ratio above which
	// the adaptive dispatcher selects the density strategy.
	DensitySpreadRatio = 4.0
	// densitySampleSize caps how many points are probed when estimating
	// the density spread across the extent.
	densitySampleSize = 256
	// minRadiusScale floors the density strategy's shrunken radius at
	// this fraction of the configured base radius.
	minRadiusScale = 0.25
)

// strategyImpl produces groups of feature indices. Implementations must
// assemble groups in input order and preserve input order within each
// group; the manager relies on this for stable output.
type strategyImpl interface {
	groups(feats []Feature, cfg Config, idx *spatial.Index) [][]int
}

// strategyFor returns the implementation for a concrete (non-adaptive)
// strategy. Callers resolve StrategyAdaptive through pickStrategy first.
func strategyFor(s Strategy) strategyImpl {
	switch s {
	case StrategyGrid:
		return gridStrategy{}
	case StrategyDensity:
		return densityStrategy{}
	default:
		return distanceStrategy{}
	}
}

// pickStrategy resolves the adaptive strategy for the given input.
// Rule order: input size first (cost guarantee), then density spread.
// The zoom escape valve is handled by the manager before any strategy
// runs, so it does not appear here.
func pickStrategy(feats []Feature, cfg Config, idx *spatial.Index) Strategy {
	if len(feats) > GridCutoff {
		return StrategyGrid
	}
	if densitySpread(feats, cfg, idx) > DensitySpreadRatio {
		return StrategyDensity
	}
	return StrategyDistance
}

// densitySpread samples local point densities via the spatial index and
// returns the max/min ratio. Every sampled density is at least
// 1/(pi*r^2) because a point is its own neighbor, so the ratio is
// always finite.
func densitySpread(feats []Feature, cfg Config, idx *spatial.Index) float64 {
	if len(feats) < 2 {
		return 1
	}

	stride := 1
	if len(feats) > densitySampleSize {
		stride = len(feats) / densitySampleSize
	}

	var densities []float64
	for i := 0; i < len(feats); i += stride {
		densities = append(densities, localDensity(idx, i, cfg.Radius))
	}

	return floats.Max(densities) / floats.Min(densities)
}

// localDensity is the number of neighbors within radius (including the
// point itself) divided by the neighborhood area.
func localDensity(idx *spatial.Index, i int, radius float64) float64 {
	count := len(idx.Neighbors(i, radius))
	return float64(count) / (math.Pi * radius * radius)
}

// gridStrategy aggregates every occupied index cell into one candidate
// group. Deterministic and O(n); demotion of under-threshold groups is
// the manager's job.
type gridStrategy struct{}

func (gridStrategy) groups(feats []Feature, cfg Config, idx *spatial.Index) [][]int {
	return idx.Cells()
}

// distanceStrategy is a single-link radius merge: iterate features in
// input order, gather unvisited neighbors within the radius, and emit
// the group if it meets MinPoints. Under-threshold seeds are emitted
// alone and their neighbors reconsidered later. This is intentionally
// simpler than DBSCAN's core-point rule; the correctness requirement is
// visual grouping, not density-connectivity.
type distanceStrategy struct{}

func (distanceStrategy) groups(feats []Feature, cfg Config, idx *spatial.Index) [][]int {
	return singleLink(feats, cfg, idx, func(int) float64 { return cfg.Radius })
}

// densityStrategy shrinks the effective merge radius where local
// density exceeds the configured threshold, preventing a dense downtown
// from swallowing an entire region while sparse areas still merge
// generously.
type densityStrategy struct{}

func (densityStrategy) groups(feats []Feature, cfg Config, idx *spatial.Index) [][]int {
	radii := make([]float64, len(feats))
	for i := range feats {
		radii[i] = effectiveRadius(localDensity(idx, i, cfg.Radius), cfg)
	}
	return singleLink(feats, cfg, idx, func(i int) float64 { return radii[i] })
}

// effectiveRadius scales the base radius down by sqrt(density/threshold)
// where the threshold is exceeded, floored at minRadiusScale of the base.
func effectiveRadius(density float64, cfg Config) float64 {
	if cfg.DensityThreshold <= 0 || density <= cfg.DensityThreshold {
		return cfg.Radius
	}
	r := cfg.Radius / math.Sqrt(density/cfg.DensityThreshold)
	if floor := cfg.Radius * minRadiusScale; r < floor {
		r = floor
	}
	return r
}

// singleLink runs the shared radius-merge loop with a per-seed radius.
// Group membership is decided by the seed's neighborhood only.
func singleLink(feats []Feature, cfg Config, idx *spatial.Index, radiusFor func(int) float64) [][]int {
	visited := make([]bool, len(feats))
	var out [][]int

	for i := range feats {
		if visited[i] {
			continue
		}

		group := make([]int, 0, 8)
		for _, j := range idx.Neighbors(i, radiusFor(i)) {
			if !visited[j] {
				group = append(group, j)
			}
		}

		if len(group) >= cfg.MinPoints {
			for _, j := range group {
				visited[j] = true
			}
			out = append(out, group)
			continue
		}

		// Seed stays a singleton; the rest of the neighborhood remains
		// available for later seeds.
		visited[i] = true
		out = append(out, []int{i})
	}

	return out
}
