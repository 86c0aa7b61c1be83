package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "server.toml", `
[server]
bind_address = "127.0.0.1:9000"

[game]
tick_rate = 20
idle_timeout = "30s"

[store]
driver = "none"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.BindAddress != "127.0.0.1:9000" {
		t.Errorf("bind address = %q", cfg.Server.BindAddress)
	}
	if cfg.Game.TickRate != 20 {
		t.Errorf("tick rate = %d", cfg.Game.TickRate)
	}
	if cfg.Game.IdleTimeout != 30*time.Second {
		t.Errorf("idle timeout = %v", cfg.Game.IdleTimeout)
	}
	if cfg.Game.MaxSessions != 100 {
		t.Errorf("max sessions default lost: %d", cfg.Game.MaxSessions)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("logging format default lost: %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := writeFile(t, "server.toml", "[game]\ntick_rate = 0\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for zero tick rate")
	}
	path = writeFile(t, "server.toml", "[store]\ndriver = \"mongo\"\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadPresets(t *testing.T) {
	path := writeFile(t, "presets.yaml", `
presets:
  - name: tiny
    mode: battle
    width: 9
    height: 9
    max_players: 2
    enemy_contact: false
  - name: horde
    mode: survival
    width: 21
    height: 17
    enemies:
      weak: 5
      strong: 1
`)
	p, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("load presets: %v", err)
	}
	if got := p.Names(); len(got) != 2 || got[0] != "horde" || got[1] != "tiny" {
		t.Fatalf("names = %v", got)
	}
	tiny, _ := p.Get("tiny")
	if tiny.EnemyContact == nil || *tiny.EnemyContact {
		t.Error("enemy_contact should decode to false")
	}
	horde, _ := p.Get("horde")
	if horde.Enemies.Weak != 5 || horde.Enemies.Strong != 1 || horde.Enemies.Total() != 6 {
		t.Errorf("enemies = %+v", horde.Enemies)
	}
	if _, ok := p.Get("nope"); ok {
		t.Error("unknown preset found")
	}
}

func TestLoadPresetsDuplicate(t *testing.T) {
	path := writeFile(t, "presets.yaml", "presets:\n  - name: a\n  - name: a\n")
	if _, err := LoadPresets(path); err == nil {
		t.Error("expected duplicate preset error")
	}
}

func TestLoadPresetsOrDefault(t *testing.T) {
	p, err := LoadPresetsOrDefault(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if _, ok := p.Get("classic"); !ok {
		t.Error("built-in classic preset missing")
	}
}
