package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"arena-server/internal/game"

	"gopkg.in/yaml.v3"
)

// Preset is a named set of session parameters loaded from YAML.
type Preset struct {
	Name                string           `yaml:"name"`
	Mode                string           `yaml:"mode"` // battle | survival
	Width               int              `yaml:"width"`
	Height              int              `yaml:"height"`
	MaxPlayers          int              `yaml:"max_players"`
	MinPlayers          int              `yaml:"min_players"`
	BlockDensity        float64          `yaml:"block_density"`
	OpenMap             bool             `yaml:"open_map"`
	Enemies             game.EnemyCounts `yaml:"enemies"`
	EnemyContact        *bool            `yaml:"enemy_contact"`
	DropChance          *float64         `yaml:"drop_chance"`
	PlayersBlockPlayers bool             `yaml:"players_block_players"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Presets holds all presets indexed by name.
type Presets struct {
	byName map[string]*Preset
}

// LoadPresets loads session presets from a YAML file.
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	p := &Presets{byName: make(map[string]*Preset, len(f.Presets))}
	for i := range f.Presets {
		pr := &f.Presets[i]
		if pr.Name == "" {
			return nil, fmt.Errorf("preset #%d has no name", i)
		}
		if _, dup := p.byName[pr.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", pr.Name)
		}
		p.byName[pr.Name] = pr
	}
	return p, nil
}

// LoadPresetsOrDefault falls back to the built-in presets when the file does not exist.
func LoadPresetsOrDefault(path string) (*Presets, error) {
	p, err := LoadPresets(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPresets(), nil
	}
	return p, err
}

// DefaultPresets returns the built-in classic and survival presets.
func DefaultPresets() *Presets {
	list := []Preset{
		{
			Name:         "classic",
			Mode:         "battle",
			Width:        15,
			Height:       13,
			MaxPlayers:   4,
			MinPlayers:   1,
			BlockDensity: game.DefaultBlockDensity,
		},
		{
			Name:         "survival",
			Mode:         "survival",
			Width:        21,
			Height:       17,
			MaxPlayers:   4,
			MinPlayers:   1,
			BlockDensity: 0.3,
			Enemies:      game.EnemyCounts{Weak: 4, Medium: 3, Strong: 2},
		},
	}
	p := &Presets{byName: make(map[string]*Preset, len(list))}
	for i := range list {
		p.byName[list[i].Name] = &list[i]
	}
	return p
}

// Get returns a copy of the named preset.
func (p *Presets) Get(name string) (Preset, bool) {
	pr, ok := p.byName[name]
	if !ok {
		return Preset{}, false
	}
	return *pr, true
}

// Names returns all preset names sorted.
func (p *Presets) Names() []string {
	names := make([]string, 0, len(p.byName))
	for n := range p.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
