// Package spatial provides a uniform grid index over a viewport extent
// for fast neighbor queries during clustering. Construction is O(n);
// radius queries cost proportional to local density rather than n.
package spatial

import (
	"math"
	"sort"

	"github.com/parcelboard/mapcluster/internal/geom"
)

// EstimatedPointsPerCell is used for initial grid capacity estimation.
const EstimatedPointsPerCell = 4

// Index buckets point indices into grid cells of a fixed size anchored
// at the extent origin. Points outside the extent are clamped to the
// nearest edge cell so clustering near viewport boundaries is not
// truncated.
type Index struct {
	cellSize   float64
	extent     geom.BBox
	points     []geom.Point
	cols, rows int64

	grid  map[int64][]int
	cells []struct{ cx, cy int64 } // per-point clamped cell coords
	order []int64                  // occupied cell IDs in first-seen order

	// global is set when cellSize or the extent is degenerate; every
	// point then shares one bucket instead of the build failing.
	global bool
}

// New builds an index over pts using cells of cellSize anchored at the
// extent's min corner. A non-positive cellSize or a degenerate extent
// falls back to a single global cell.
func New(pts []geom.Point, extent geom.BBox, cellSize float64) *Index {
	idx := &Index{
		cellSize: cellSize,
		extent:   extent,
		points:   pts,
		grid:     make(map[int64][]int, len(pts)/EstimatedPointsPerCell+1),
		cells:    make([]struct{ cx, cy int64 }, len(pts)),
	}

	if cellSize <= 0 || extent.IsDegenerate() {
		idx.global = true
		idx.cols, idx.rows = 1, 1
	} else {
		idx.cols = int64(math.Ceil(extent.Width() / cellSize))
		idx.rows = int64(math.Ceil(extent.Height() / cellSize))
		if idx.cols < 1 {
			idx.cols = 1
		}
		if idx.rows < 1 {
			idx.rows = 1
		}
	}

	for i, p := range pts {
		cx, cy := idx.cellCoords(p)
		idx.cells[i] = struct{ cx, cy int64 }{cx, cy}
		id := pairCellID(cx, cy)
		if _, seen := idx.grid[id]; !seen {
			idx.order = append(idx.order, id)
		}
		idx.grid[id] = append(idx.grid[id], i)
	}

	return idx
}

// Len returns the number of indexed points.
func (idx *Index) Len() int { return len(idx.points) }

// CellSize returns the configured cell size.
func (idx *Index) CellSize() float64 { return idx.cellSize }

// cellCoords returns the clamped cell coordinates for a point.
func (idx *Index) cellCoords(p geom.Point) (int64, int64) {
	if idx.global {
		return 0, 0
	}
	cx := int64(math.Floor((p.X - idx.extent.MinX) / idx.cellSize))
	cy := int64(math.Floor((p.Y - idx.extent.MinY) / idx.cellSize))
	return clamp(cx, 0, idx.cols-1), clamp(cy, 0, idx.rows-1)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// pairCellID maps signed cell coordinates to a unique int64 using
// zigzag encoding followed by Szudzik's pairing function.
func pairCellID(cx, cy int64) int64 {
	var a, b int64
	if cx >= 0 {
		a = 2 * cx
	} else {
		a = -2*cx - 1
	}
	if cy >= 0 {
		b = 2 * cy
	} else {
		b = -2*cy - 1
	}
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// Neighbors returns the indices of all points within radius of
// points[i], including i itself. Results are sorted ascending so the
// caller's iteration order is deterministic.
func (idx *Index) Neighbors(i int, radius float64) []int {
	p := idx.points[i]
	r2 := radius * radius
	var neighbors []int

	if idx.global {
		for j, q := range idx.points {
			if geom.SquaredDistance(p, q) <= r2 {
				neighbors = append(neighbors, j)
			}
		}
		return neighbors
	}

	// Ring of cells guaranteed to cover the radius. Clamping the scan
	// range to the grid keeps edge cells from being visited twice.
	ring := int64(math.Ceil(radius / idx.cellSize))
	c := idx.cells[i]
	minCx := clamp(c.cx-ring, 0, idx.cols-1)
	maxCx := clamp(c.cx+ring, 0, idx.cols-1)
	minCy := clamp(c.cy-ring, 0, idx.rows-1)
	maxCy := clamp(c.cy+ring, 0, idx.rows-1)

	for cx := minCx; cx <= maxCx; cx++ {
		for cy := minCy; cy <= maxCy; cy++ {
			for _, j := range idx.grid[pairCellID(cx, cy)] {
				if geom.SquaredDistance(p, idx.points[j]) <= r2 {
					neighbors = append(neighbors, j)
				}
			}
		}
	}

	sort.Ints(neighbors)
	return neighbors
}

// Cells returns the occupied cells as groups of point indices. Groups
// appear in first-occupied order and members in input order, so the
// result is a pure function of the input point sequence.
func (idx *Index) Cells() [][]int {
	groups := make([][]int, 0, len(idx.order))
	for _, id := range idx.order {
		groups = append(groups, idx.grid[id])
	}
	return groups
}
