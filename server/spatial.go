package main

// CellSize is smaller than the largest perception radius (Paper's 120), so
// queries scan every cell overlapping the query circle's bounding box rather
// than a fixed 3x3 block. That keeps neighbor lookups exact for any radius
// while cells stay dense enough to pay off.
const CellSize = 50.0

// SpatialGrid is a uniform grid for broad-phase neighbor queries. Cells hold
// indices into the entity slice of the tick that built the grid; the grid is
// fully rebuilt each tick and carries no cross-tick identity.
type SpatialGrid struct {
	cols, rows int
	cells      [][]int
}

// NewSpatialGrid sizes a grid for the given arena dimensions
func NewSpatialGrid(width, height float64) *SpatialGrid {
	cols := int(width/CellSize) + 1
	rows := int(height/CellSize) + 1
	return &SpatialGrid{
		cols:  cols,
		rows:  rows,
		cells: make([][]int, cols*rows),
	}
}

// Clear resets all cells, keeping allocated capacity
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) cellIdx(x, y float64) int {
	cx := int(x / CellSize)
	cy := int(y / CellSize)
	if cx < 0 {
		cx = 0
	} else if cx >= g.cols {
		cx = g.cols - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= g.rows {
		cy = g.rows - 1
	}
	return cy*g.cols + cx
}

// Insert adds an entity index at the given position
func (g *SpatialGrid) Insert(x, y float64, idx int) {
	ci := g.cellIdx(x, y)
	g.cells[ci] = append(g.cells[ci], idx)
}

// QueryBuf appends the contents of every cell overlapping the circle's
// bounding box to buf and returns the extended slice. Callers filter by
// exact distance; the grid only guarantees no false negatives.
func (g *SpatialGrid) QueryBuf(x, y, radius float64, buf []int) []int {
	minCX := int((x - radius) / CellSize)
	maxCX := int((x + radius) / CellSize)
	minCY := int((y - radius) / CellSize)
	maxCY := int((y + radius) / CellSize)
	if minCX < 0 {
		minCX = 0
	}
	if maxCX >= g.cols {
		maxCX = g.cols - 1
	}
	if minCY < 0 {
		minCY = 0
	}
	if maxCY >= g.rows {
		maxCY = g.rows - 1
	}
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cy*g.cols+cx]...)
		}
	}
	return buf
}

// Query is QueryBuf with a fresh result slice
func (g *SpatialGrid) Query(x, y, radius float64) []int {
	return g.QueryBuf(x, y, radius, nil)
}
