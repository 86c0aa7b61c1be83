package game

import (
	"math"
	"math/rand"
)

// Cell is the terrain kind of one grid cell
type Cell int8

const (
	CellEmpty     Cell = 0
	CellSolid     Cell = 1 // never destroyed
	CellBreakable Cell = 2 // destroyed by blasts
)

const (
	DefaultBlockDensity = 0.4
	DefaultSafeZone     = 3 // cells from each corner kept free of blocks
)

// CellPos addresses one grid cell
type CellPos struct {
	X, Y int
}

// Grid is the terrain of one match, stored row-major
type Grid struct {
	Width  int
	Height int
	cells  []Cell
}

// NewGrid returns an all-empty grid
func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}
}

// InBounds reports whether the cell lies inside the grid
func (g *Grid) InBounds(cx, cy int) bool {
	return cx >= 0 && cy >= 0 && cx < g.Width && cy < g.Height
}

// At returns the cell kind; anything outside the grid reads as solid.
func (g *Grid) At(cx, cy int) Cell {
	if !g.InBounds(cx, cy) {
		return CellSolid
	}
	return g.cells[cy*g.Width+cx]
}

// Set changes a cell; out-of-bounds writes are ignored
func (g *Grid) Set(cx, cy int, c Cell) {
	if !g.InBounds(cx, cy) {
		return
	}
	g.cells[cy*g.Width+cx] = c
}

// Clone returns a deep copy
func (g *Grid) Clone() *Grid {
	c := &Grid{Width: g.Width, Height: g.Height, cells: make([]Cell, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}

// Rows returns the grid as int8[height][width]
func (g *Grid) Rows() [][]int8 {
	rows := make([][]int8, g.Height)
	for y := 0; y < g.Height; y++ {
		row := make([]int8, g.Width)
		for x := 0; x < g.Width; x++ {
			row[x] = int8(g.cells[y*g.Width+x])
		}
		rows[y] = row
	}
	return rows
}

// Count returns how many cells hold the given kind
func (g *Grid) Count(c Cell) int {
	n := 0
	for _, v := range g.cells {
		if v == c {
			n++
		}
	}
	return n
}

// CellOf converts a world coordinate to a cell index
func CellOf(coord, cellSize float64) int {
	return int(math.Floor(coord / cellSize))
}

// CellCenter returns the world coordinate of a cell's centre
func CellCenter(c int, cellSize float64) float64 {
	return (float64(c) + 0.5) * cellSize
}

// MapOptions tunes map generation
type MapOptions struct {
	BlockDensity float64
	SafeZone     int
}

// DefaultMapOptions returns the reference generation settings
func DefaultMapOptions() MapOptions {
	return MapOptions{BlockDensity: DefaultBlockDensity, SafeZone: DefaultSafeZone}
}

// InSafeZone reports whether a cell belongs to one of the four corner spawn zones
func (g *Grid) InSafeZone(cx, cy, zone int) bool {
	dx := cx
	if r := g.Width - 1 - cx; r < dx {
		dx = r
	}
	dy := cy
	if r := g.Height - 1 - cy; r < dy {
		dy = r
	}
	return dx <= zone && dy <= zone
}

// GenerateMap builds the terrain for a match. Border and pillar placement
// depend only on the dimensions; breakable blocks come from the seed.
func GenerateMap(width, height int, seed int64, opts MapOptions) *Grid {
	g := NewGrid(width, height)
	rng := rand.New(rand.NewSource(seed))

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			switch {
			case x == 0 || y == 0 || x == g.Width-1 || y == g.Height-1:
				g.Set(x, y, CellSolid)
			case x%2 == 0 && y%2 == 0:
				g.Set(x, y, CellSolid)
			default:
				// Draw for every candidate so the block layout outside the
				// safe zones does not shift when the zone size changes.
				roll := rng.Float64()
				if g.InSafeZone(x, y, opts.SafeZone) {
					continue
				}
				if roll < opts.BlockDensity {
					g.Set(x, y, CellBreakable)
				}
			}
		}
	}
	return g
}

// SpawnCells returns the four corner spawn cells, clamped into the grid
func SpawnCells(g *Grid) []CellPos {
	clamp := func(v, max int) int {
		if v > max {
			v = max
		}
		if v < 0 {
			v = 0
		}
		return v
	}
	maxX, maxY := g.Width-1, g.Height-1
	return []CellPos{
		{X: clamp(1, maxX), Y: clamp(1, maxY)},
		{X: clamp(g.Width-2, maxX), Y: clamp(1, maxY)},
		{X: clamp(1, maxX), Y: clamp(g.Height-2, maxY)},
		{X: clamp(g.Width-2, maxX), Y: clamp(g.Height-2, maxY)},
	}
}
