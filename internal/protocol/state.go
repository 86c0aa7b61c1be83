package protocol

// MapState is the full terrain grid, indexed grid[y][x]
type MapState struct {
	Width  int      `msgpack:"w" json:"width"`
	Height int      `msgpack:"h" json:"height"`
	Grid   [][]int8 `msgpack:"g" json:"grid"`
}

// CellChange is one terrain cell that changed since the last emission
type CellChange struct {
	X    int  `msgpack:"x"`
	Y    int  `msgpack:"y"`
	Kind int8 `msgpack:"k"`
}

// PlayerState is broadcast per player
type PlayerState struct {
	ID           uint32  `msgpack:"id"`
	X            float64 `msgpack:"x"`
	Y            float64 `msgpack:"y"`
	W            float64 `msgpack:"w"`
	H            float64 `msgpack:"h"`
	Lives        int     `msgpack:"l"`
	Invulnerable bool    `msgpack:"inv"`
	Speed        float64 `msgpack:"spd"`
	Color        string  `msgpack:"c"`
	MaxWeapons   int     `msgpack:"mw"`
	Power        int     `msgpack:"pw"`
	Alive        bool    `msgpack:"a"`
	Team         int     `msgpack:"tm"`
	Kills        int     `msgpack:"k"`
}

// EnemyState is broadcast per enemy
type EnemyState struct {
	ID           uint32  `msgpack:"id"`
	Kind         uint8   `msgpack:"kd"`
	X            float64 `msgpack:"x"`
	Y            float64 `msgpack:"y"`
	W            float64 `msgpack:"w"`
	H            float64 `msgpack:"h"`
	Lives        int     `msgpack:"l"`
	Invulnerable bool    `msgpack:"inv"`
	Speed        float64 `msgpack:"spd"`
	Color        string  `msgpack:"c"`
	HeadX        float64 `msgpack:"hx"`
	HeadY        float64 `msgpack:"hy"`
	Destroyed    bool    `msgpack:"d"`
}

// WeaponState is broadcast per placed weapon
type WeaponState struct {
	ID     uint32  `msgpack:"id"`
	Kind   uint8   `msgpack:"kd"`
	Owner  uint32  `msgpack:"o"`
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
	Fuse   float64 `msgpack:"f"`
	Radius int     `msgpack:"r"`
	Armed  bool    `msgpack:"arm"`
}

// PowerUpState is broadcast per power-up
type PowerUpState struct {
	ID   uint32  `msgpack:"id"`
	Kind uint8   `msgpack:"kd"`
	X    float64 `msgpack:"x"`
	Y    float64 `msgpack:"y"`
}

// Explosion lists the cells covered by one detonation in the last tick
type Explosion struct {
	Weapon uint32   `msgpack:"wid"`
	Cells  [][2]int `msgpack:"c"`
}

// Removed lists ids no longer present, per collection
type Removed struct {
	Players  []uint32 `msgpack:"p,omitempty"`
	Enemies  []uint32 `msgpack:"e,omitempty"`
	Weapons  []uint32 `msgpack:"w,omitempty"`
	PowerUps []uint32 `msgpack:"u,omitempty"`
}

// Snapshot is the full state sent on join
type Snapshot struct {
	Tick     uint64         `msgpack:"tick"`
	Map      MapState       `msgpack:"map"`
	Players  []PlayerState  `msgpack:"p"`
	Enemies  []EnemyState   `msgpack:"e"`
	Weapons  []WeaponState  `msgpack:"w"`
	PowerUps []PowerUpState `msgpack:"u"`
}

// Delta is the incremental state since the previous emission
type Delta struct {
	Tick       uint64         `msgpack:"tick"`
	Cells      []CellChange   `msgpack:"cells,omitempty"`
	Players    []PlayerState  `msgpack:"p,omitempty"`
	Enemies    []EnemyState   `msgpack:"e,omitempty"`
	Weapons    []WeaponState  `msgpack:"w,omitempty"`
	PowerUps   []PowerUpState `msgpack:"u,omitempty"`
	Removed    Removed        `msgpack:"rm"`
	Explosions []Explosion    `msgpack:"x,omitempty"`
}

// Empty reports whether the delta carries no change. The tick is ignored.
func (d *Delta) Empty() bool {
	return len(d.Cells) == 0 &&
		len(d.Players) == 0 &&
		len(d.Enemies) == 0 &&
		len(d.Weapons) == 0 &&
		len(d.PowerUps) == 0 &&
		len(d.Explosions) == 0 &&
		len(d.Removed.Players) == 0 &&
		len(d.Removed.Enemies) == 0 &&
		len(d.Removed.Weapons) == 0 &&
		len(d.Removed.PowerUps) == 0
}

// GameOver is sent once when a session finishes
type GameOver struct {
	Result  string   `msgpack:"res" json:"result"`
	Winners []uint32 `msgpack:"win,omitempty" json:"winners,omitempty"`
	Reason  string   `msgpack:"why,omitempty" json:"reason,omitempty"`
	Tick    uint64   `msgpack:"tick" json:"tick"`
}

// PlayerDisconnected notifies peers that a player left
type PlayerDisconnected struct {
	PlayerID uint32 `msgpack:"pid"`
}

// Frame is the binary message pushed to session subscribers
type Frame struct {
	T            string              `msgpack:"t"`
	SessionID    string              `msgpack:"sid"`
	Snapshot     *Snapshot           `msgpack:"s,omitempty"`
	Delta        *Delta              `msgpack:"d,omitempty"`
	GameOver     *GameOver           `msgpack:"go,omitempty"`
	Disconnected *PlayerDisconnected `msgpack:"pd,omitempty"`
}
