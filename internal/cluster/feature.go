package cluster

import (
	"math"

	"github.com/parcelboard/mapcluster/internal/geom"
)

// Feature is a single input point: a caller-assigned ID, a planar
// coordinate, and an open map of named attributes (numeric or string).
// Features are owned by the caller and never mutated by the engine.
type Feature struct {
	ID         string
	X, Y       float64
	Attributes map[string]interface{}
}

// Point returns the feature position.
func (f Feature) Point() geom.Point {
	return geom.Point{X: f.X, Y: f.Y}
}

// hasValidCoords reports whether the feature carries a usable
// coordinate. Features failing this check are excluded from clustering
// and reported in Result.Skipped rather than aborting the batch.
func (f Feature) hasValidCoords() bool {
	return !math.IsNaN(f.X) && !math.IsInf(f.X, 0) &&
		!math.IsNaN(f.Y) && !math.IsInf(f.Y, 0)
}
