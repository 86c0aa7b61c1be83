package session

import (
	"fmt"

	"arena-server/internal/config"
	"arena-server/internal/game"
)

const (
	DefaultTickRate   = 30
	DefaultWidth      = 15
	DefaultHeight     = 13
	DefaultMaxPlayers = 4

	minMapSide    = 5
	maxMapSide    = 101
	maxPlayersCap = 16
)

// Config describes one session. Width and Height are required; other zero
// fields take defaults.
type Config struct {
	Name         string
	Mode         game.Mode
	Width        int
	Height       int
	Seed         int64   // 0 derives the seed from the session id
	BlockDensity float64 // 0 uses game.DefaultBlockDensity
	OpenMap      bool    // no breakable blocks at all
	SafeZone     int
	MaxPlayers   int
	MinPlayers   int
	Enemies      game.EnemyCounts
	TickRate     int
	Rules        *game.Rules // nil uses game.DefaultRules with Mode applied
}

// normalize fills defaults and rejects configurations no map can satisfy
func (c *Config) normalize() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: non-positive dimensions %dx%d", ErrInvalidMapConfig, c.Width, c.Height)
	}
	if c.Width < minMapSide || c.Height < minMapSide || c.Width > maxMapSide || c.Height > maxMapSide {
		return fmt.Errorf("%w: %dx%d outside %d..%d", ErrInvalidMapConfig, c.Width, c.Height, minMapSide, maxMapSide)
	}
	if c.BlockDensity < 0 || c.BlockDensity > 1 {
		return fmt.Errorf("%w: block density %.2f", ErrInvalidMapConfig, c.BlockDensity)
	}
	switch {
	case c.OpenMap:
		c.BlockDensity = 0
	case c.BlockDensity == 0:
		c.BlockDensity = game.DefaultBlockDensity
	}
	if c.SafeZone <= 0 {
		c.SafeZone = game.DefaultSafeZone
	}
	if c.MaxPlayers == 0 {
		c.MaxPlayers = DefaultMaxPlayers
	}
	if c.MaxPlayers < 0 || c.MaxPlayers > maxPlayersCap {
		return fmt.Errorf("%w: max players %d", ErrInvalidMapConfig, c.MaxPlayers)
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = 1
	}
	if c.MinPlayers > c.MaxPlayers {
		return fmt.Errorf("%w: min players %d above max %d", ErrInvalidMapConfig, c.MinPlayers, c.MaxPlayers)
	}
	if c.Enemies.Weak < 0 || c.Enemies.Medium < 0 || c.Enemies.Strong < 0 {
		return fmt.Errorf("%w: negative enemy count", ErrInvalidMapConfig)
	}
	if c.TickRate <= 0 {
		c.TickRate = DefaultTickRate
	}
	if c.Name == "" {
		c.Name = c.Mode.String()
	}
	return nil
}

func (c *Config) rules() game.Rules {
	r := game.DefaultRules()
	if c.Rules != nil {
		r = *c.Rules
	}
	r.Mode = c.Mode
	r.SafeZone = c.SafeZone
	return r
}

// FromPreset converts a YAML preset into a session config. Presets without
// dimensions get the classic 15x13 map.
func FromPreset(p config.Preset) Config {
	cfg := Config{
		Name:         p.Name,
		Mode:         game.ParseMode(p.Mode),
		Width:        p.Width,
		Height:       p.Height,
		BlockDensity: p.BlockDensity,
		OpenMap:      p.OpenMap,
		MaxPlayers:   p.MaxPlayers,
		MinPlayers:   p.MinPlayers,
		Enemies:      p.Enemies,
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if p.EnemyContact != nil || p.DropChance != nil || p.PlayersBlockPlayers {
		r := game.DefaultRules()
		if p.EnemyContact != nil {
			r.EnemyContact = *p.EnemyContact
		}
		if p.DropChance != nil {
			r.DropChance = *p.DropChance
		}
		r.Blocking.PlayersBlockPlayers = p.PlayersBlockPlayers
		cfg.Rules = &r
	}
	return cfg
}
