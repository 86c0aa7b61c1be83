package game

// Blast is the shape of one detonation
type Blast struct {
	Weapon EntityID
	Owner  EntityID
	Cells  []CellPos
}

// Kill records an entity losing its last life this step
type Kill struct {
	Killer EntityID // weapon owner, or the enemy on contact
	Victim EntityID
	Player bool // victim was a player
}

// up, right, down, left
var directions = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// BlastShape computes the cross-shaped blast from origin. Each arm stops
// before the first solid cell and on the first breakable cell, which is
// returned in broken.
func BlastShape(g *Grid, origin CellPos, radius int) (cells []CellPos, broken []CellPos) {
	cells = append(cells, origin)
	for _, d := range directions {
		for i := 1; i <= radius; i++ {
			c := CellPos{X: origin.X + d[0]*i, Y: origin.Y + d[1]*i}
			kind := g.At(c.X, c.Y)
			if kind == CellSolid {
				break
			}
			cells = append(cells, c)
			if kind == CellBreakable {
				broken = append(broken, c)
				break
			}
		}
	}
	return cells, broken
}

// due reports whether a weapon detonates this step
func (wp *Weapon) due() bool {
	if wp.Detonated || wp.Expired {
		return false
	}
	switch wp.Kind {
	case TimedBomb:
		return wp.Fuse <= 0
	default:
		return wp.Impacted
	}
}

// resolveCombat detonates due weapons, chains detonations, breaks blocks,
// applies blast and contact damage.
func (w *World) resolveCombat(res *StepResult) {
	cs := w.Rules.CellSize
	weapons := w.Weapons()
	players := w.Players()
	enemies := w.Enemies()

	var queue []*Weapon
	for _, wp := range weapons {
		if wp.due() {
			queue = append(queue, wp)
		}
	}

	// Each weapon detonates at most once, so the live weapon count bounds
	// the chain.
	limit := len(weapons)
	detonations := 0
	for len(queue) > 0 && detonations < limit {
		wp := queue[0]
		queue = queue[1:]
		if wp.Detonated {
			continue
		}
		wp.Detonated = true
		detonations++

		cells, broken := BlastShape(w.Grid, wp.Cell(cs), wp.Radius)
		w.blasts = append(w.blasts, Blast{Weapon: wp.ID, Owner: wp.Owner, Cells: cells})

		for _, c := range broken {
			w.Grid.Set(c.X, c.Y, CellEmpty)
			res.BlocksBroken++
			if w.rng.Float64() < w.Rules.DropChance {
				kind := PowerUpKind(w.rng.Intn(int(powerUpKinds)))
				w.SpawnPowerUp(kind, c)
			}
		}

		hit := make(map[CellPos]bool, len(cells))
		for _, c := range cells {
			hit[c] = true
		}

		for _, other := range weapons {
			if other.Detonated || other.Expired {
				continue
			}
			if hit[other.Cell(cs)] {
				queue = append(queue, other)
			}
		}

		for _, p := range players {
			if !p.Alive || !w.rectTouchesCells(p.Box(), hit) {
				continue
			}
			if w.damagePlayer(p) {
				w.creditKill(wp.Owner, p.ID)
				res.Kills = append(res.Kills, Kill{Killer: wp.Owner, Victim: p.ID, Player: true})
			}
		}
		for _, e := range enemies {
			if e.Destroyed || !w.rectTouchesCells(e.Box(), hit) {
				continue
			}
			if w.damageEnemy(e) {
				w.creditKill(wp.Owner, e.ID)
				res.Kills = append(res.Kills, Kill{Killer: wp.Owner, Victim: e.ID})
			}
		}
	}

	if !w.Rules.EnemyContact {
		return
	}
	for _, p := range players {
		if !p.Alive {
			continue
		}
		box := p.Box()
		for _, e := range enemies {
			if e.Destroyed || !box.Overlaps(e.Box()) {
				continue
			}
			if w.damagePlayer(p) {
				res.Kills = append(res.Kills, Kill{Killer: e.ID, Victim: p.ID, Player: true})
			}
			break
		}
	}
}

// damagePlayer applies one hit and reports whether the player died
func (w *World) damagePlayer(p *Player) bool {
	_, killed := p.hit(w.Rules.InvulnDuration, w.Rules.DeathDelay)
	if killed {
		p.Alive = false
		p.Input = Input{}
		p.requests = p.requests[:0]
	}
	return killed
}

// damageEnemy applies one hit and reports whether the enemy was destroyed
func (w *World) damageEnemy(e *Enemy) bool {
	_, killed := e.hit(w.Rules.InvulnDuration, w.Rules.DeathDelay)
	if killed {
		e.Destroyed = true
		e.DeathT = w.Rules.DeathDelay
	}
	return killed
}

func (w *World) creditKill(owner, victim EntityID) {
	if owner == victim {
		return
	}
	if p, ok := w.players[owner]; ok {
		p.Kills++
	}
}
