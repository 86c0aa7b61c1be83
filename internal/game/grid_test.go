package game

import (
	"reflect"
	"testing"
)

// openGrid returns a grid with a solid border and an empty interior
func openGrid(w, h int) *Grid {
	g := NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				g.Set(x, y, CellSolid)
			}
		}
	}
	return g
}

func TestGenerateMapBorderAndPillars(t *testing.T) {
	g := GenerateMap(15, 13, 42, DefaultMapOptions())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			border := x == 0 || y == 0 || x == g.Width-1 || y == g.Height-1
			if border && g.At(x, y) != CellSolid {
				t.Fatalf("border cell (%d,%d) = %d, want solid", x, y, g.At(x, y))
			}
			if !border && x%2 == 0 && y%2 == 0 && g.At(x, y) != CellSolid {
				t.Errorf("pillar cell (%d,%d) = %d, want solid", x, y, g.At(x, y))
			}
		}
	}
}

func TestGenerateMapSafeZonesHaveNoBlocks(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		g := GenerateMap(15, 13, seed, DefaultMapOptions())
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				if g.InSafeZone(x, y, DefaultSafeZone) && g.At(x, y) == CellBreakable {
					t.Fatalf("seed %d: breakable block in safe zone at (%d,%d)", seed, x, y)
				}
			}
		}
		for _, c := range SpawnCells(g) {
			if g.At(c.X, c.Y) != CellEmpty {
				t.Errorf("seed %d: spawn cell %v not empty", seed, c)
			}
		}
	}
}

func TestGenerateMapDeterministic(t *testing.T) {
	a := GenerateMap(21, 17, 7, DefaultMapOptions())
	b := GenerateMap(21, 17, 7, DefaultMapOptions())
	if !reflect.DeepEqual(a.Rows(), b.Rows()) {
		t.Fatal("same seed produced different maps")
	}
	c := GenerateMap(21, 17, 8, DefaultMapOptions())
	if reflect.DeepEqual(a.Rows(), c.Rows()) {
		t.Error("different seeds produced identical maps")
	}
	if a.Count(CellBreakable) == 0 {
		t.Error("expected some breakable blocks at default density")
	}
}

func TestGenerateMapZeroDensity(t *testing.T) {
	g := GenerateMap(15, 13, 3, MapOptions{BlockDensity: 0, SafeZone: DefaultSafeZone})
	if n := g.Count(CellBreakable); n != 0 {
		t.Errorf("expected no blocks, got %d", n)
	}
}

func TestGridOutOfBoundsIsSolid(t *testing.T) {
	g := NewGrid(3, 3)
	if g.At(-1, 0) != CellSolid || g.At(0, 3) != CellSolid {
		t.Error("out-of-bounds reads should be solid")
	}
	g.Set(5, 5, CellBreakable) // ignored
	if g.Count(CellBreakable) != 0 {
		t.Error("out-of-bounds write changed the grid")
	}
}

func TestSpawnCellsSmallGrid(t *testing.T) {
	g := NewGrid(2, 2)
	for _, c := range SpawnCells(g) {
		if !g.InBounds(c.X, c.Y) {
			t.Errorf("spawn cell %v outside 2x2 grid", c)
		}
	}
}
