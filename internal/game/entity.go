package game

import "arena-server/internal/protocol"

// EntityID identifies an entity; ids are unique across all collections of a World
type EntityID uint32

// Rect is an axis-aligned box [MinX,MaxX) x [MinY,MaxY)
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Overlaps reports strict overlap; touching edges do not count
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Offset returns the box moved by (dx, dy)
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{r.MinX + dx, r.MinY + dy, r.MaxX + dx, r.MaxY + dy}
}

// CellRect returns the box covering one grid cell
func CellRect(c CellPos, cellSize float64) Rect {
	x := float64(c.X) * cellSize
	y := float64(c.Y) * cellSize
	return Rect{x, y, x + cellSize, y + cellSize}
}

// Body holds the attributes shared by every entity kind
type Body struct {
	ID      EntityID
	X, Y    float64 // centre
	W, H    float64
	Lives   int
	InvulnT float64 // remaining invulnerability, seconds
	Speed   float64
	Color   string
}

// Box returns the entity's bounding box
func (b *Body) Box() Rect {
	return Rect{b.X - b.W/2, b.Y - b.H/2, b.X + b.W/2, b.Y + b.H/2}
}

// Invulnerable reports whether damage is currently ignored
func (b *Body) Invulnerable() bool {
	return b.InvulnT > 0
}

// Cell returns the cell holding the entity's centre
func (b *Body) Cell(cellSize float64) CellPos {
	return CellPos{X: CellOf(b.X, cellSize), Y: CellOf(b.Y, cellSize)}
}

// hit applies one point of damage. It returns whether the hit landed and
// whether it took the last life.
func (b *Body) hit(invuln, deathDelay float64) (landed, killed bool) {
	if b.Lives <= 0 || b.Invulnerable() {
		return false, false
	}
	b.Lives--
	if b.Lives <= 0 {
		b.Lives = 0
		b.InvulnT = deathDelay
		return true, true
	}
	b.InvulnT = invuln
	return true, false
}

// Input is the held-button state of one player
type Input struct {
	Up, Down, Left, Right bool
	PlaceWeapon1          bool
	PlaceWeapon2          bool
	Action                bool
}

// Weapon slots addressable by place requests
const (
	SlotBomb       = 1
	SlotMine       = 2
	SlotProjectile = 3
)

var playerColors = [...]string{"#ffffff", "#222222", "#e53935", "#1e88e5"}

// Player is a client-owned avatar
type Player struct {
	Body
	ClientID   string
	Input      Input
	FacingX    float64
	FacingY    float64
	MaxWeapons int
	Power      int
	Alive      bool
	Team       int
	Kills      int
	requests   []int // weapon slots requested this tick
}

// ToState converts to protocol state
func (p *Player) ToState() protocol.PlayerState {
	return protocol.PlayerState{
		ID:           uint32(p.ID),
		X:            p.X,
		Y:            p.Y,
		W:            p.W,
		H:            p.H,
		Lives:        p.Lives,
		Invulnerable: p.Invulnerable(),
		Speed:        p.Speed,
		Color:        p.Color,
		MaxWeapons:   p.MaxWeapons,
		Power:        p.Power,
		Alive:        p.Alive,
		Team:         p.Team,
		Kills:        p.Kills,
	}
}

// EnemyKind selects an enemy archetype
type EnemyKind uint8

const (
	EnemyWeak EnemyKind = iota
	EnemyMedium
	EnemyStrong
)

type enemyStats struct {
	lives int
	speed float64
	color string
}

var enemyTable = [...]enemyStats{
	EnemyWeak:   {lives: 1, speed: 2.0, color: "#8bc34a"},
	EnemyMedium: {lives: 2, speed: 2.5, color: "#ff9800"},
	EnemyStrong: {lives: 3, speed: 1.5, color: "#9c27b0"},
}

// Enemy is an AI-controlled unit
type Enemy struct {
	Body
	Kind      EnemyKind
	HeadX     float64
	HeadY     float64
	RetargetT float64
	Destroyed bool
	DeathT    float64 // removal countdown once destroyed
}

// ToState converts to protocol state
func (e *Enemy) ToState() protocol.EnemyState {
	return protocol.EnemyState{
		ID:           uint32(e.ID),
		Kind:         uint8(e.Kind),
		X:            e.X,
		Y:            e.Y,
		W:            e.W,
		H:            e.H,
		Lives:        e.Lives,
		Invulnerable: e.Invulnerable(),
		Speed:        e.Speed,
		Color:        e.Color,
		HeadX:        e.HeadX,
		HeadY:        e.HeadY,
		Destroyed:    e.Destroyed,
	}
}

// WeaponKind selects a placed device
type WeaponKind uint8

const (
	TimedBomb WeaponKind = iota
	Projectile
	Mine
)

// Weapon is a device placed or fired by a player
type Weapon struct {
	Body
	Kind      WeaponKind
	Owner     EntityID
	Fuse      float64 // bomb fuse, mine and projectile ttl
	ArmT      float64 // mine arming delay
	Radius    int
	VX, VY    float64
	Armed     bool
	Impacted  bool
	Detonated bool
	Expired   bool
}

// ToState converts to protocol state
func (w *Weapon) ToState() protocol.WeaponState {
	return protocol.WeaponState{
		ID:     uint32(w.ID),
		Kind:   uint8(w.Kind),
		Owner:  uint32(w.Owner),
		X:      w.X,
		Y:      w.Y,
		Fuse:   w.Fuse,
		Radius: w.Radius,
		Armed:  w.Armed,
	}
}

// PowerUpKind selects the effect of a pickup
type PowerUpKind uint8

const (
	ExtraWeapon PowerUpKind = iota
	WeaponPowerUp
	SpeedUp
	ExtraLife
	powerUpKinds
)

// PowerUp is an upgrade lying on the map
type PowerUp struct {
	Body
	Kind     PowerUpKind
	Consumed bool
}

// ToState converts to protocol state
func (p *PowerUp) ToState() protocol.PowerUpState {
	return protocol.PowerUpState{
		ID:   uint32(p.ID),
		Kind: uint8(p.Kind),
		X:    p.X,
		Y:    p.Y,
	}
}
