package cluster

import "fmt"

// Strategy selects the grouping algorithm.
type Strategy string

// Recognized clustering strategies.
const (
	// StrategyGrid aggregates each occupied index cell into one group.
	StrategyGrid Strategy = "grid"
	// StrategyDistance performs single-link radius merging in input order.
	StrategyDistance Strategy = "distance"
	// StrategyDensity shrinks the merge radius where local point density
	// exceeds the configured threshold, then runs the distance merge.
	StrategyDensity Strategy = "density"
	// StrategyAdaptive picks one of the above based on zoom, input size,
	// and density spread.
	StrategyAdaptive Strategy = "adaptive"
)

// Default configuration values. Linear units match the caller's
// coordinate space (meters if projected).
const (
	DefaultRadius           = 50.0
	DefaultMinPoints        = 2
	DefaultMaxZoom          = 16.0
	DefaultGridSize         = 60.0
	DefaultDensityThreshold = 0.01
)

// Config describes clustering behavior. It is a value object: validate
// once, then treat as immutable for the duration of a clustering call.
type Config struct {
	// Strategy is one of grid, distance, density, or adaptive.
	Strategy Strategy
	// Radius is the base merge radius in linear units.
	Radius float64
	// MinPoints is the minimum feature count required to form a
	// cluster. Groups below this threshold are emitted as unclustered
	// singletons, never as one-point clusters.
	MinPoints int
	// MaxZoom is the zoom level at and above which clustering is
	// disabled entirely and every feature renders individually.
	MaxZoom float64
	// GridSize is the cell size used by the grid strategy and by the
	// spatial index regardless of strategy.
	GridSize float64
	// DensityThreshold is the minimum local density (points per unit
	// area) before the density strategy shrinks its effective radius.
	DensityThreshold float64
}

// DefaultConfig returns a Config with the package defaults and the
// adaptive strategy.
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyAdaptive,
		Radius:           DefaultRadius,
		MinPoints:        DefaultMinPoints,
		MaxZoom:          DefaultMaxZoom,
		GridSize:         DefaultGridSize,
		DensityThreshold: DefaultDensityThreshold,
	}
}

// InvalidConfigError reports a Config that violates an invariant.
// Configuration errors are fatal and surfaced before any clustering
// work begins; invalid values are never silently clamped.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid cluster config: %s %s", e.Field, e.Reason)
}

// Validate checks the Config invariants. Returns an *InvalidConfigError
// describing the first violation found.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyGrid, StrategyDistance, StrategyDensity, StrategyAdaptive:
	default:
		return &InvalidConfigError{
			Field:  "Strategy",
			Reason: fmt.Sprintf("must be one of grid, distance, density, adaptive; got %q", string(c.Strategy)),
		}
	}
	if c.Radius <= 0 {
		return &InvalidConfigError{
			Field:  "Radius",
			Reason: fmt.Sprintf("must be positive, got %g", c.Radius),
		}
	}
	if c.MinPoints < 1 {
		return &InvalidConfigError{
			Field:  "MinPoints",
			Reason: fmt.Sprintf("must be at least 1, got %d", c.MinPoints),
		}
	}
	if c.GridSize <= 0 {
		return &InvalidConfigError{
			Field:  "GridSize",
			Reason: fmt.Sprintf("must be positive, got %g", c.GridSize),
		}
	}
	return nil
}
