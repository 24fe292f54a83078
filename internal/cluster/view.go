package cluster

import "github.com/parcelboard/mapcluster/internal/geom"

// View is the transient per-call viewport context. It decides strategy
// selection and scopes the spatial index; it is never persisted.
type View struct {
	// Zoom is the current map zoom level (non-negative).
	Zoom float64
	// Extent is the visible bounding box in the same coordinate space
	// as the features.
	Extent geom.BBox
}
