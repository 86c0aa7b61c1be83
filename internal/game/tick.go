package game

import "math"

// Outcome results
const (
	ResultWin       = "win"
	ResultLose      = "lose"
	ResultDraw      = "draw"
	ResultAbandoned = "abandoned"
	ResultError     = "error"
)

// Outcome describes how a match ended
type Outcome struct {
	Result  string
	Winners []EntityID
	Reason  string
}

// StepResult reports what happened during one step
type StepResult struct {
	Kills        []Kill
	BlocksBroken int
	Pickups      int
	Outcome      *Outcome // non-nil once the mode's end condition holds
}

type moveIntent struct {
	dx, dy float64
}

// Step advances the world by one fixed time step. The phase order is part
// of the simulation contract and must not change.
func (w *World) Step(dt float64) StepResult {
	var res StepResult
	w.tick++
	w.blasts = nil
	w.decayTimers(dt)

	players := w.Players()
	enemies := w.Enemies()

	// 1. player input -> movement and placement intent
	playerMoves := make([]moveIntent, len(players))
	for i, p := range players {
		if !p.Alive {
			p.requests = p.requests[:0]
			continue
		}
		playerMoves[i] = w.applyInput(p, dt)
	}

	// 2. enemy AI
	enemyMoves := make([]moveIntent, len(enemies))
	for i, e := range enemies {
		if e.Destroyed {
			continue
		}
		dx, dy := w.enemyIntent(e, dt)
		enemyMoves[i] = moveIntent{dx, dy}
	}

	// 3. collision-resolved movement
	for i, p := range players {
		if p.Alive {
			w.ResolveMove(&p.Body, moverPlayer, playerMoves[i].dx, playerMoves[i].dy)
		}
	}
	for i, e := range enemies {
		if !e.Destroyed {
			w.ResolveMove(&e.Body, moverEnemy, enemyMoves[i].dx, enemyMoves[i].dy)
		}
	}

	// 4. weapon placement
	for _, p := range players {
		w.applyRequests(p)
	}

	// 5. fuses, mines, projectiles
	w.advanceWeapons(dt)

	// 6. detonations and damage
	w.resolveCombat(&res)

	// 7. pickups
	w.collectPowerUps(&res)

	// 8. retire dead entities
	w.purge()

	// 9. termination
	res.Outcome = w.evaluate()
	return res
}

func (w *World) decayTimers(dt float64) {
	for _, p := range w.players {
		p.InvulnT = math.Max(0, p.InvulnT-dt)
	}
	for _, e := range w.enemies {
		e.InvulnT = math.Max(0, e.InvulnT-dt)
		if e.Destroyed {
			e.DeathT -= dt
		}
	}
}

// applyInput turns held buttons into a displacement and queued placements
func (w *World) applyInput(p *Player, dt float64) moveIntent {
	in := p.Input
	var mx, my float64
	if in.Right {
		mx++
	}
	if in.Left {
		mx--
	}
	if in.Down {
		my++
	}
	if in.Up {
		my--
	}
	switch {
	case mx != 0:
		p.FacingX, p.FacingY = mx, 0
	case my != 0:
		p.FacingX, p.FacingY = 0, my
	}

	if in.PlaceWeapon1 {
		p.requests = append(p.requests, SlotBomb)
	}
	if in.PlaceWeapon2 {
		p.requests = append(p.requests, SlotMine)
	}
	if in.Action {
		p.requests = append(p.requests, SlotProjectile)
	}
	return moveIntent{mx * p.Speed * dt, my * p.Speed * dt}
}

// applyRequests places at most one weapon per slot per step
func (w *World) applyRequests(p *Player) {
	if len(p.requests) == 0 {
		return
	}
	var seen [SlotProjectile + 1]bool
	for _, slot := range p.requests {
		if seen[slot] {
			continue
		}
		seen[slot] = true
		w.placeWeapon(p, slot)
	}
	p.requests = p.requests[:0]
}

func (w *World) placeWeapon(p *Player, slot int) bool {
	if !p.Alive || w.activeWeapons(p.ID) >= p.MaxWeapons {
		return false
	}
	switch slot {
	case SlotBomb, SlotMine:
		if w.weaponAt(p.Cell(w.Rules.CellSize)) {
			return false
		}
		kind := TimedBomb
		if slot == SlotMine {
			kind = Mine
		}
		w.SpawnWeapon(kind, p.ID, p.X, p.Y)
	case SlotProjectile:
		w.SpawnWeapon(Projectile, p.ID, p.X, p.Y)
	default:
		return false
	}
	return true
}

func (w *World) advanceWeapons(dt float64) {
	for _, wp := range w.Weapons() {
		if wp.Detonated || wp.Expired {
			continue
		}
		switch wp.Kind {
		case TimedBomb:
			wp.Fuse -= dt
		case Mine:
			wp.Fuse -= dt
			if wp.Fuse <= 0 {
				wp.Expired = true
				continue
			}
			if !wp.Armed {
				wp.ArmT -= dt
				if wp.ArmT <= 0 {
					wp.Armed = true
				}
			}
			if wp.Armed && w.mineTriggered(wp) {
				wp.Impacted = true
			}
		case Projectile:
			wp.Fuse -= dt
			if wp.Fuse <= 0 {
				wp.Expired = true
				continue
			}
			w.flyProjectile(wp, dt)
		}
	}
}

func (w *World) mineTriggered(wp *Weapon) bool {
	zone := CellRect(wp.Cell(w.Rules.CellSize), w.Rules.CellSize)
	for _, p := range w.players {
		if p.Alive && p.Box().Overlaps(zone) {
			return true
		}
	}
	for _, e := range w.enemies {
		if !e.Destroyed && e.Box().Overlaps(zone) {
			return true
		}
	}
	return false
}

// flyProjectile moves a projectile; terrain or a living target other
// than its owner stops it.
func (w *World) flyProjectile(wp *Weapon, dt float64) {
	dx, dy := wp.VX*dt, wp.VY*dt
	next := wp.Box().Offset(dx, dy)
	if w.terrainBlocks(next) {
		wp.Impacted = true
		return
	}
	wp.X += dx
	wp.Y += dy
	w.clampBody(&wp.Body)

	for _, p := range w.players {
		if p.Alive && p.ID != wp.Owner && p.Box().Overlaps(next) {
			wp.Impacted = true
			return
		}
	}
	for _, e := range w.enemies {
		if !e.Destroyed && e.Box().Overlaps(next) {
			wp.Impacted = true
			return
		}
	}
}

func (w *World) collectPowerUps(res *StepResult) {
	players := w.Players()
	for _, pu := range w.PowerUps() {
		if pu.Consumed {
			continue
		}
		box := pu.Box()
		for _, p := range players {
			if !p.Alive || !p.Box().Overlaps(box) {
				continue
			}
			w.applyPowerUp(p, pu.Kind)
			pu.Consumed = true
			res.Pickups++
			break
		}
	}
}

func (w *World) applyPowerUp(p *Player, kind PowerUpKind) {
	r := &w.Rules
	switch kind {
	case ExtraWeapon:
		p.MaxWeapons = min(p.MaxWeapons+1, r.MaxWeapons)
	case WeaponPowerUp:
		p.Power = min(p.Power+1, r.MaxPower)
	case SpeedUp:
		p.Speed = math.Min(p.Speed+r.SpeedStep, r.MaxSpeed)
	case ExtraLife:
		p.Lives = min(p.Lives+1, r.MaxLives)
	}
}

func (w *World) purge() {
	for id, wp := range w.weapons {
		if wp.Detonated || wp.Expired {
			delete(w.weapons, id)
		}
	}
	for id, pu := range w.powerUps {
		if pu.Consumed {
			delete(w.powerUps, id)
		}
	}
	for id, e := range w.enemies {
		if e.Destroyed && e.DeathT <= 0 {
			delete(w.enemies, id)
		}
	}
}

// evaluate applies the termination rule of the active mode
func (w *World) evaluate() *Outcome {
	var alive []EntityID
	for _, p := range w.Players() {
		if p.Alive {
			alive = append(alive, p.ID)
		}
	}

	switch w.Rules.Mode {
	case ModeSurvival:
		if w.peakPlayers > 0 && len(alive) == 0 {
			return &Outcome{Result: ResultLose, Reason: "all players down"}
		}
		if w.enemiesSpawned > 0 && len(w.enemies) == 0 {
			return &Outcome{Result: ResultWin, Winners: alive, Reason: "enemies cleared"}
		}
	default:
		if w.peakPlayers >= 2 && len(alive) <= 1 {
			if len(alive) == 1 {
				return &Outcome{Result: ResultWin, Winners: alive, Reason: "last player standing"}
			}
			return &Outcome{Result: ResultDraw, Reason: "no survivors"}
		}
		if w.peakPlayers == 1 && len(w.players) > 0 && len(alive) == 0 {
			return &Outcome{Result: ResultLose, Reason: "player down"}
		}
	}
	return nil
}
