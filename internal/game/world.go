package game

import (
	"math"
	"math/rand"
	"sort"
	"sync/atomic"
)

// EnemyCounts is how many enemies of each kind the level spawner places
type EnemyCounts struct {
	Weak   int `yaml:"weak" toml:"weak"`
	Medium int `yaml:"medium" toml:"medium"`
	Strong int `yaml:"strong" toml:"strong"`
}

// Total returns the sum of all kinds
func (c EnemyCounts) Total() int {
	return c.Weak + c.Medium + c.Strong
}

// World holds every live entity and the terrain of one match. A World is
// owned by a single goroutine; only NewID is safe for concurrent use.
type World struct {
	Rules Rules
	Grid  *Grid

	players  map[EntityID]*Player
	enemies  map[EntityID]*Enemy
	weapons  map[EntityID]*Weapon
	powerUps map[EntityID]*PowerUp

	rng    *rand.Rand
	nextID atomic.Uint32
	tick   uint64

	blasts         []Blast // detonations of the last step
	spawnCursor    int
	peakPlayers    int
	enemiesSpawned int
}

// NewWorld creates a world over the given grid. The seed drives AI and drops.
func NewWorld(grid *Grid, rules Rules, seed int64) *World {
	if rules.CellSize <= 0 {
		rules.CellSize = CellSize
	}
	return &World{
		Rules:    rules,
		Grid:     grid,
		players:  make(map[EntityID]*Player),
		enemies:  make(map[EntityID]*Enemy),
		weapons:  make(map[EntityID]*Weapon),
		powerUps: make(map[EntityID]*PowerUp),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// NewID allocates an id unique within this world
func (w *World) NewID() EntityID {
	return EntityID(w.nextID.Add(1))
}

// reserveID keeps the counter past an id chosen by the caller
func (w *World) reserveID(id EntityID) {
	for {
		cur := w.nextID.Load()
		if uint32(id) <= cur || w.nextID.CompareAndSwap(cur, uint32(id)) {
			return
		}
	}
}

// Tick returns how many steps have run
func (w *World) Tick() uint64 {
	return w.tick
}

// Blasts returns the detonations of the last step
func (w *World) Blasts() []Blast {
	return w.blasts
}

// clampBody keeps an entity's centre inside the grid; the far edge belongs
// to the next cell, so the upper bound is just below it
func (w *World) clampBody(b *Body) {
	maxX := math.Nextafter(float64(w.Grid.Width)*w.Rules.CellSize, 0)
	maxY := math.Nextafter(float64(w.Grid.Height)*w.Rules.CellSize, 0)
	if b.X < 0 {
		b.X = 0
	} else if b.X > maxX {
		b.X = maxX
	}
	if b.Y < 0 {
		b.Y = 0
	} else if b.Y > maxY {
		b.Y = maxY
	}
}

func (w *World) cellCentre(c CellPos) (float64, float64) {
	return CellCenter(c.X, w.Rules.CellSize), CellCenter(c.Y, w.Rules.CellSize)
}

// AddPlayer places a new player on the next corner spawn. Passing id 0
// allocates one.
func (w *World) AddPlayer(id EntityID, clientID string) *Player {
	if id == 0 {
		id = w.NewID()
	} else {
		w.reserveID(id)
	}
	spawns := SpawnCells(w.Grid)
	slot := w.spawnCursor % len(spawns)
	w.spawnCursor++
	x, y := w.cellCentre(spawns[slot])

	r := &w.Rules
	p := &Player{
		Body: Body{
			ID:    id,
			X:     x,
			Y:     y,
			W:     r.PlayerSize,
			H:     r.PlayerSize,
			Lives: r.PlayerLives,
			Speed: r.PlayerSpeed,
			Color: playerColors[slot],
		},
		ClientID:   clientID,
		FacingX:    1,
		MaxWeapons: r.StartWeapons,
		Power:      r.StartPower,
		Alive:      true,
	}
	w.clampBody(&p.Body)
	w.players[id] = p
	if len(w.players) > w.peakPlayers {
		w.peakPlayers = len(w.players)
	}
	return p
}

// RemovePlayer drops a player. Weapons it placed keep ticking.
func (w *World) RemovePlayer(id EntityID) {
	delete(w.players, id)
}

// AddEnemy places an enemy at a world position
func (w *World) AddEnemy(kind EnemyKind, x, y float64) *Enemy {
	if int(kind) >= len(enemyTable) {
		kind = EnemyWeak
	}
	stats := enemyTable[kind]
	e := &Enemy{
		Body: Body{
			ID:    w.NewID(),
			X:     x,
			Y:     y,
			W:     w.Rules.EnemySize,
			H:     w.Rules.EnemySize,
			Lives: stats.lives,
			Speed: stats.speed,
			Color: stats.color,
		},
		Kind: kind,
	}
	w.clampBody(&e.Body)
	w.enemies[e.ID] = e
	w.enemiesSpawned++
	return e
}

// SpawnEnemies scatters enemies over empty cells outside the spawn zones
func (w *World) SpawnEnemies(counts EnemyCounts) int {
	zone := w.Rules.SafeZone
	if zone <= 0 {
		zone = DefaultSafeZone
	}
	var free []CellPos
	for y := 0; y < w.Grid.Height; y++ {
		for x := 0; x < w.Grid.Width; x++ {
			if w.Grid.At(x, y) == CellEmpty && !w.Grid.InSafeZone(x, y, zone) {
				free = append(free, CellPos{X: x, Y: y})
			}
		}
	}
	w.rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })

	kinds := make([]EnemyKind, 0, counts.Total())
	for i := 0; i < counts.Weak; i++ {
		kinds = append(kinds, EnemyWeak)
	}
	for i := 0; i < counts.Medium; i++ {
		kinds = append(kinds, EnemyMedium)
	}
	for i := 0; i < counts.Strong; i++ {
		kinds = append(kinds, EnemyStrong)
	}

	placed := 0
	for i, kind := range kinds {
		if i >= len(free) {
			break
		}
		x, y := w.cellCentre(free[i])
		e := w.AddEnemy(kind, x, y)
		w.retarget(e)
		placed++
	}
	return placed
}

// activeWeapons counts weapons an owner still has on the map
func (w *World) activeWeapons(owner EntityID) int {
	n := 0
	for _, wp := range w.weapons {
		if wp.Owner == owner && !wp.Detonated && !wp.Expired {
			n++
		}
	}
	return n
}

// weaponAt reports whether a bomb or mine already sits in the cell
func (w *World) weaponAt(c CellPos) bool {
	for _, wp := range w.weapons {
		if wp.Kind == Projectile || wp.Detonated || wp.Expired {
			continue
		}
		if wp.Cell(w.Rules.CellSize) == c {
			return true
		}
	}
	return false
}

// SpawnWeapon creates a weapon for an owner. Bombs and mines snap to the
// centre of the owner's cell; projectiles leave from the owner's centre
// along its facing.
func (w *World) SpawnWeapon(kind WeaponKind, owner EntityID, x, y float64) *Weapon {
	r := &w.Rules
	wp := &Weapon{
		Body: Body{
			ID: w.NewID(),
			X:  x,
			Y:  y,
			W:  r.WeaponSize,
			H:  r.WeaponSize,
		},
		Kind:   kind,
		Owner:  owner,
		Radius: r.StartPower,
	}
	p := w.players[owner]
	if p != nil {
		wp.Radius = p.Power
		wp.Color = p.Color
	}

	switch kind {
	case TimedBomb:
		wp.Fuse = r.BombFuse
	case Mine:
		wp.Fuse = r.MineTTL
		wp.ArmT = r.MineArmDelay
	case Projectile:
		wp.Fuse = r.ProjectileTTL
		wp.Radius = r.ProjectileRadius
		if p != nil {
			wp.VX = p.FacingX * r.ProjectileSpeed
			wp.VY = p.FacingY * r.ProjectileSpeed
		}
	}
	if kind != Projectile {
		c := CellPos{X: CellOf(x, r.CellSize), Y: CellOf(y, r.CellSize)}
		wp.X, wp.Y = w.cellCentre(c)
	}
	w.clampBody(&wp.Body)
	w.weapons[wp.ID] = wp
	return wp
}

// SpawnPowerUp drops a power-up at the centre of a cell
func (w *World) SpawnPowerUp(kind PowerUpKind, c CellPos) *PowerUp {
	x, y := w.cellCentre(c)
	pu := &PowerUp{
		Body: Body{
			ID: w.NewID(),
			X:  x,
			Y:  y,
			W:  w.Rules.PowerUpSize,
			H:  w.Rules.PowerUpSize,
		},
		Kind: kind,
	}
	w.clampBody(&pu.Body)
	w.powerUps[pu.ID] = pu
	return pu
}

// Destroy removes an entity from whichever collection holds it. Unknown
// ids are ignored.
func (w *World) Destroy(id EntityID) {
	delete(w.players, id)
	delete(w.enemies, id)
	delete(w.weapons, id)
	delete(w.powerUps, id)
}

// Player returns a player by id
func (w *World) Player(id EntityID) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// PlayerCount returns the number of players in the world
func (w *World) PlayerCount() int {
	return len(w.players)
}

// AlivePlayers returns the number of living players
func (w *World) AlivePlayers() int {
	n := 0
	for _, p := range w.players {
		if p.Alive {
			n++
		}
	}
	return n
}

// SetInput replaces a player's held-button state
func (w *World) SetInput(id EntityID, in Input) {
	if p, ok := w.players[id]; ok {
		p.Input = in
	}
}

// RequestWeapon queues a placement for the next step
func (w *World) RequestWeapon(id EntityID, slot int) {
	if p, ok := w.players[id]; ok && slot >= SlotBomb && slot <= SlotProjectile {
		p.requests = append(p.requests, slot)
	}
}

// Players returns all players sorted by id
func (w *World) Players() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Enemies returns all enemies sorted by id
func (w *World) Enemies() []*Enemy {
	out := make([]*Enemy, 0, len(w.enemies))
	for _, e := range w.enemies {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Weapons returns all weapons sorted by id
func (w *World) Weapons() []*Weapon {
	out := make([]*Weapon, 0, len(w.weapons))
	for _, wp := range w.weapons {
		out = append(out, wp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PowerUps returns all power-ups sorted by id
func (w *World) PowerUps() []*PowerUp {
	out := make([]*PowerUp, 0, len(w.powerUps))
	for _, pu := range w.powerUps {
		out = append(out, pu)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
