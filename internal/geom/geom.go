// Package geom provides planar geometry primitives for the clustering
// engine: points, axis-aligned bounding boxes, and distance functions.
// All functions are pure and carry no error recovery logic.
package geom

import (
	"errors"
	"math"
)

// ErrEmptyInput is returned when an operation requires at least one point.
var ErrEmptyInput = errors.New("geom: empty input")

// Point is a position in a planar (projected) coordinate space. The
// engine is coordinate-system agnostic as long as distances are linear.
type Point struct {
	X, Y float64
}

// BBox is an axis-aligned bounding box.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyBBox returns a box that any Extend call will collapse onto the
// extended point.
func EmptyBBox() BBox {
	return BBox{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// Extend expands the box to include the point (x, y).
func (b *BBox) Extend(x, y float64) {
	b.MinX = math.Min(b.MinX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxX = math.Max(b.MaxX, x)
	b.MaxY = math.Max(b.MaxY, y)
}

// Width returns the horizontal span of the box.
func (b BBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical span of the box.
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// Area returns the area of the box.
func (b BBox) Area() float64 { return b.Width() * b.Height() }

// IsDegenerate reports whether the box has zero area or inverted
// bounds. A single-point viewport before the first pan produces a
// degenerate extent; callers fall back rather than fail.
func (b BBox) IsDegenerate() bool {
	return !(b.Width() > 0) || !(b.Height() > 0)
}

// Contains reports whether the point lies inside the box (inclusive).
func (b BBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Distance returns the Euclidean distance between two points.
// Non-negative, symmetric, and zero iff a == b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// SquaredDistance avoids the sqrt for radius comparisons.
func SquaredDistance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// BoundingBoxOf returns the tightest box containing all points.
// Returns ErrEmptyInput for an empty slice; callers must special-case
// the zero-point case first.
func BoundingBoxOf(pts []Point) (BBox, error) {
	if len(pts) == 0 {
		return BBox{}, ErrEmptyInput
	}
	b := EmptyBBox()
	for _, p := range pts {
		b.Extend(p.X, p.Y)
	}
	return b, nil
}
