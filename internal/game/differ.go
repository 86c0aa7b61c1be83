package game

import (
	"sort"

	"arena-server/internal/protocol"
)

// Differ turns world state into snapshots and deltas. It keeps the last
// emitted state as a baseline; one Differ serves one world.
type Differ struct {
	grid     *Grid
	players  map[uint32]protocol.PlayerState
	enemies  map[uint32]protocol.EnemyState
	weapons  map[uint32]protocol.WeaponState
	powerUps map[uint32]protocol.PowerUpState

	blastTick uint64 // last tick whose explosions were emitted or folded into a snapshot
}

// NewDiffer returns a differ with an empty baseline
func NewDiffer() *Differ {
	d := &Differ{}
	d.reset()
	return d
}

func (d *Differ) reset() {
	d.grid = nil
	d.players = make(map[uint32]protocol.PlayerState)
	d.enemies = make(map[uint32]protocol.EnemyState)
	d.weapons = make(map[uint32]protocol.WeaponState)
	d.powerUps = make(map[uint32]protocol.PowerUpState)
}

// Snapshot returns the complete state and makes it the new baseline
func (d *Differ) Snapshot(w *World) protocol.Snapshot {
	d.reset()
	d.grid = w.Grid.Clone()
	d.blastTick = w.Tick()

	snap := protocol.Snapshot{
		Tick: w.Tick(),
		Map: protocol.MapState{
			Width:  w.Grid.Width,
			Height: w.Grid.Height,
			Grid:   w.Grid.Rows(),
		},
		Players:  make([]protocol.PlayerState, 0, len(w.players)),
		Enemies:  make([]protocol.EnemyState, 0, len(w.enemies)),
		Weapons:  make([]protocol.WeaponState, 0, len(w.weapons)),
		PowerUps: make([]protocol.PowerUpState, 0, len(w.powerUps)),
	}
	for _, p := range w.Players() {
		s := p.ToState()
		d.players[s.ID] = s
		snap.Players = append(snap.Players, s)
	}
	for _, e := range w.Enemies() {
		s := e.ToState()
		d.enemies[s.ID] = s
		snap.Enemies = append(snap.Enemies, s)
	}
	for _, wp := range w.Weapons() {
		s := wp.ToState()
		d.weapons[s.ID] = s
		snap.Weapons = append(snap.Weapons, s)
	}
	for _, pu := range w.PowerUps() {
		s := pu.ToState()
		d.powerUps[s.ID] = s
		snap.PowerUps = append(snap.PowerUps, s)
	}
	return snap
}

// Delta returns what changed since the baseline and advances it. Without a
// prior snapshot every cell and entity counts as new. Explosions of a step
// are reported once.
func (d *Differ) Delta(w *World) protocol.Delta {
	delta := protocol.Delta{Tick: w.Tick()}

	base := d.grid
	if base == nil || base.Width != w.Grid.Width || base.Height != w.Grid.Height {
		base = NewGrid(w.Grid.Width, w.Grid.Height)
	}
	for y := 0; y < w.Grid.Height; y++ {
		for x := 0; x < w.Grid.Width; x++ {
			if c := w.Grid.At(x, y); c != base.At(x, y) {
				delta.Cells = append(delta.Cells, protocol.CellChange{X: x, Y: y, Kind: int8(c)})
			}
		}
	}
	d.grid = w.Grid.Clone()

	seen := make(map[uint32]bool, len(d.players))
	for _, p := range w.Players() {
		s := p.ToState()
		seen[s.ID] = true
		if old, ok := d.players[s.ID]; !ok || old != s {
			delta.Players = append(delta.Players, s)
			d.players[s.ID] = s
		}
	}
	delta.Removed.Players = prune(d.players, seen)

	seen = make(map[uint32]bool, len(d.enemies))
	for _, e := range w.Enemies() {
		s := e.ToState()
		seen[s.ID] = true
		if old, ok := d.enemies[s.ID]; !ok || old != s {
			delta.Enemies = append(delta.Enemies, s)
			d.enemies[s.ID] = s
		}
	}
	delta.Removed.Enemies = prune(d.enemies, seen)

	seen = make(map[uint32]bool, len(d.weapons))
	for _, wp := range w.Weapons() {
		s := wp.ToState()
		seen[s.ID] = true
		if old, ok := d.weapons[s.ID]; !ok || old != s {
			delta.Weapons = append(delta.Weapons, s)
			d.weapons[s.ID] = s
		}
	}
	delta.Removed.Weapons = prune(d.weapons, seen)

	seen = make(map[uint32]bool, len(d.powerUps))
	for _, pu := range w.PowerUps() {
		s := pu.ToState()
		seen[s.ID] = true
		if old, ok := d.powerUps[s.ID]; !ok || old != s {
			delta.PowerUps = append(delta.PowerUps, s)
			d.powerUps[s.ID] = s
		}
	}
	delta.Removed.PowerUps = prune(d.powerUps, seen)

	if w.Tick() <= d.blastTick {
		return delta
	}
	d.blastTick = w.Tick()
	for _, b := range w.Blasts() {
		ex := protocol.Explosion{Weapon: uint32(b.Weapon), Cells: make([][2]int, len(b.Cells))}
		for i, c := range b.Cells {
			ex.Cells[i] = [2]int{c.X, c.Y}
		}
		delta.Explosions = append(delta.Explosions, ex)
	}
	return delta
}

// prune drops baseline entries not seen this round and returns their ids sorted
func prune[T any](baseline map[uint32]T, seen map[uint32]bool) []uint32 {
	var gone []uint32
	for id := range baseline {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		delete(baseline, id)
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	return gone
}
