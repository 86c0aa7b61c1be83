package game

import "strings"

const (
	CellSize         = 1.0
	PlayerSize       = 0.8
	EnemySize        = 0.8
	WeaponSize       = 0.6
	PowerUpSize      = 0.6
	PlayerLives      = 3
	PlayerSpeed      = 3.0 // cells/s
	MaxSpeed         = 6.0
	SpeedStep        = 0.5
	StartWeapons     = 1
	MaxWeapons       = 8
	StartPower       = 1
	MaxPower         = 8
	MaxLives         = 9
	BombFuse         = 2.5 // seconds
	MineArmDelay     = 1.0
	MineTTL          = 30.0
	ProjectileSpeed  = 8.0
	ProjectileTTL    = 1.5
	ProjectileRadius = 1
	InvulnDuration   = 1.5
	DeathDelay       = 0.6 // death animation before removal
	DropChance       = 0.3
	AIRetargetMin    = 0.5
	AIRetargetMax    = 2.0
)

// Mode selects the termination rule of a match
type Mode uint8

const (
	ModeBattle   Mode = 0 // last player standing
	ModeSurvival Mode = 1 // clear all enemies
)

func (m Mode) String() string {
	switch m {
	case ModeSurvival:
		return "survival"
	default:
		return "battle"
	}
}

// ParseMode maps a mode name to a Mode; unknown names are battle
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "survival", "coop", "pve":
		return ModeSurvival
	default:
		return ModeBattle
	}
}

// BlockPolicy decides which entity classes stop each other's movement
type BlockPolicy struct {
	EnemiesBlockPlayers bool
	PlayersBlockPlayers bool
	PlayersBlockEnemies bool
	EnemiesBlockEnemies bool
}

// Rules holds every tunable of the simulation
type Rules struct {
	Mode             Mode
	CellSize         float64
	PlayerSize       float64
	EnemySize        float64
	WeaponSize       float64
	PowerUpSize      float64
	PlayerLives      int
	PlayerSpeed      float64
	MaxSpeed         float64
	SpeedStep        float64
	StartWeapons     int
	MaxWeapons       int
	StartPower       int
	MaxPower         int
	MaxLives         int
	BombFuse         float64
	MineArmDelay     float64
	MineTTL          float64
	ProjectileSpeed  float64
	ProjectileTTL    float64
	ProjectileRadius int
	InvulnDuration   float64
	DeathDelay       float64
	DropChance       float64
	AIRetargetMin    float64
	AIRetargetMax    float64
	EnemyContact     bool // living enemies hurt players they touch
	SafeZone         int  // corner zone kept clear of blocks and enemies
	Blocking         BlockPolicy
}

// DefaultRules returns the reference game rules
func DefaultRules() Rules {
	return Rules{
		Mode:             ModeBattle,
		CellSize:         CellSize,
		PlayerSize:       PlayerSize,
		EnemySize:        EnemySize,
		WeaponSize:       WeaponSize,
		PowerUpSize:      PowerUpSize,
		PlayerLives:      PlayerLives,
		PlayerSpeed:      PlayerSpeed,
		MaxSpeed:         MaxSpeed,
		SpeedStep:        SpeedStep,
		StartWeapons:     StartWeapons,
		MaxWeapons:       MaxWeapons,
		StartPower:       StartPower,
		MaxPower:         MaxPower,
		MaxLives:         MaxLives,
		BombFuse:         BombFuse,
		MineArmDelay:     MineArmDelay,
		MineTTL:          MineTTL,
		ProjectileSpeed:  ProjectileSpeed,
		ProjectileTTL:    ProjectileTTL,
		ProjectileRadius: ProjectileRadius,
		InvulnDuration:   InvulnDuration,
		DeathDelay:       DeathDelay,
		DropChance:       DropChance,
		AIRetargetMin:    AIRetargetMin,
		AIRetargetMax:    AIRetargetMax,
		EnemyContact:     true,
		SafeZone:         DefaultSafeZone,
		Blocking: BlockPolicy{
			EnemiesBlockPlayers: true,
			EnemiesBlockEnemies: true,
		},
	}
}
