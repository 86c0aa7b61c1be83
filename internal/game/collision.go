package game

import "math"

// moverClass tells the resolver which blocking rules apply
type moverClass uint8

const (
	moverPlayer moverClass = iota
	moverEnemy
)

// cellSpan returns the inclusive cell range covered by [min, max)
func cellSpan(min, max, cellSize float64) (int, int) {
	lo := int(math.Floor(min / cellSize))
	hi := int(math.Ceil(max/cellSize)) - 1
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// terrainBlocks reports whether a box overlaps any non-empty cell.
// Cells outside the grid read as solid.
func (w *World) terrainBlocks(r Rect) bool {
	cs := w.Rules.CellSize
	x0, x1 := cellSpan(r.MinX, r.MaxX, cs)
	y0, y1 := cellSpan(r.MinY, r.MaxY, cs)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			if w.Grid.At(cx, cy) != CellEmpty {
				return true
			}
		}
	}
	return false
}

// rectTouchesCells reports whether a box overlaps any cell in the set
func (w *World) rectTouchesCells(r Rect, cells map[CellPos]bool) bool {
	cs := w.Rules.CellSize
	x0, x1 := cellSpan(r.MinX, r.MaxX, cs)
	y0, y1 := cellSpan(r.MinY, r.MaxY, cs)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			if cells[CellPos{X: cx, Y: cy}] {
				return true
			}
		}
	}
	return false
}

// blockers collects the boxes that may stop a mover of the given class.
// Boxes already overlapping the mover are skipped so an entity can always
// walk out of something that walked into it.
func (w *World) blockers(self EntityID, class moverClass, start Rect) []Rect {
	pol := w.Rules.Blocking
	var out []Rect
	add := func(b *Body) {
		if b.ID == self {
			return
		}
		box := b.Box()
		if box.Overlaps(start) {
			return
		}
		out = append(out, box)
	}

	blockedByEnemies := (class == moverPlayer && pol.EnemiesBlockPlayers) ||
		(class == moverEnemy && pol.EnemiesBlockEnemies)
	blockedByPlayers := (class == moverPlayer && pol.PlayersBlockPlayers) ||
		(class == moverEnemy && pol.PlayersBlockEnemies)

	if blockedByEnemies {
		for _, e := range w.enemies {
			if !e.Destroyed {
				add(&e.Body)
			}
		}
	}
	if blockedByPlayers {
		for _, p := range w.players {
			if p.Alive {
				add(&p.Body)
			}
		}
	}
	return out
}

func (w *World) moveBlocked(r Rect, others []Rect) bool {
	if w.terrainBlocks(r) {
		return true
	}
	for _, o := range others {
		if r.Overlaps(o) {
			return true
		}
	}
	return false
}

// ResolveMove applies a proposed displacement one axis at a time and
// returns the displacement actually taken. A rejected axis is zeroed.
func (w *World) ResolveMove(b *Body, class moverClass, dx, dy float64) (float64, float64) {
	start := b.Box()
	others := w.blockers(b.ID, class, start)

	box := start
	if dx != 0 {
		moved := box.Offset(dx, 0)
		if w.moveBlocked(moved, others) {
			dx = 0
		} else {
			box = moved
		}
	}
	if dy != 0 {
		moved := box.Offset(0, dy)
		if w.moveBlocked(moved, others) {
			dy = 0
		}
	}
	b.X += dx
	b.Y += dy
	w.clampBody(b)
	return dx, dy
}
