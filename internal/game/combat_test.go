package game

import "testing"

func testRules() Rules {
	r := DefaultRules()
	r.DropChance = 0
	r.EnemyContact = false
	return r
}

func placeAt(b *Body, cx, cy int) {
	b.X = CellCenter(cx, CellSize)
	b.Y = CellCenter(cy, CellSize)
}

func TestBlastShapeStopsAtSolid(t *testing.T) {
	g := openGrid(11, 3)
	cells, broken := BlastShape(g, CellPos{1, 1}, 3)
	// origin plus three cells to the right; the other arms hit the border
	if len(cells) != 4 {
		t.Fatalf("expected 4 cells, got %d: %v", len(cells), cells)
	}
	if len(broken) != 0 {
		t.Errorf("expected nothing broken, got %v", broken)
	}
	for _, c := range cells {
		if g.At(c.X, c.Y) == CellSolid {
			t.Errorf("blast covers solid cell %v", c)
		}
	}
}

func TestBlastShapeCorridorLength(t *testing.T) {
	g := openGrid(11, 3)
	// wall at x=10 is 9 cells from the origin
	cells, _ := BlastShape(g, CellPos{1, 1}, 20)
	right := 0
	for _, c := range cells {
		if c.X > 1 {
			right++
		}
	}
	if right != 8 {
		t.Errorf("expected 8 cells before the wall, got %d", right)
	}
}

func TestBlastShapeStopsOnFirstBreakable(t *testing.T) {
	g := openGrid(11, 3)
	g.Set(3, 1, CellBreakable)
	g.Set(4, 1, CellBreakable)
	g.Set(5, 1, CellBreakable)

	cells, broken := BlastShape(g, CellPos{1, 1}, 5)
	if len(broken) != 1 || broken[0] != (CellPos{3, 1}) {
		t.Fatalf("expected only (3,1) broken, got %v", broken)
	}
	for _, c := range cells {
		if c.X > 3 {
			t.Errorf("blast tunnelled through a block to %v", c)
		}
	}
}

func TestBombBesideBlockAndWall(t *testing.T) {
	g := openGrid(7, 7)
	g.Set(2, 1, CellBreakable)
	w := NewWorld(g, testRules(), 1)
	w.SpawnWeapon(TimedBomb, 0, CellCenter(1, CellSize), CellCenter(1, CellSize))

	var broken int
	for i := 0; i < 5; i++ {
		res := w.Step(0.5)
		broken += res.BlocksBroken
	}
	if broken != 1 {
		t.Errorf("expected 1 block broken, got %d", broken)
	}
	if g.At(2, 1) != CellEmpty {
		t.Error("block next to the bomb should be destroyed")
	}
	if g.At(0, 1) != CellSolid || g.At(1, 0) != CellSolid {
		t.Error("border walls must survive the blast")
	}
	if len(w.Weapons()) != 0 {
		t.Error("detonated bomb should be purged")
	}
}

func TestDoubleExplosionCostsOneLife(t *testing.T) {
	w := NewWorld(openGrid(9, 9), testRules(), 1)
	p := w.AddPlayer(0, "a")
	placeAt(&p.Body, 3, 3)

	w.SpawnWeapon(TimedBomb, 0, CellCenter(2, CellSize), CellCenter(3, CellSize))
	w.SpawnWeapon(TimedBomb, 0, CellCenter(4, CellSize), CellCenter(3, CellSize))
	for _, wp := range w.Weapons() {
		wp.Fuse = 0.01
	}

	w.Step(0.1)
	if got := len(w.Blasts()); got != 2 {
		t.Fatalf("expected 2 blasts, got %d", got)
	}
	if p.Lives != PlayerLives-1 {
		t.Errorf("expected %d lives, got %d", PlayerLives-1, p.Lives)
	}
	if !p.Invulnerable() {
		t.Error("player should be invulnerable after a hit")
	}
}

func TestChainDetonation(t *testing.T) {
	w := NewWorld(openGrid(9, 3), testRules(), 1)
	a := w.SpawnWeapon(TimedBomb, 0, CellCenter(2, CellSize), CellCenter(1, CellSize))
	b := w.SpawnWeapon(TimedBomb, 0, CellCenter(4, CellSize), CellCenter(1, CellSize))
	a.Radius = 2
	a.Fuse = 0.01
	b.Fuse = 100

	w.Step(0.1)
	blasts := w.Blasts()
	if len(blasts) != 2 {
		t.Fatalf("expected chained detonation, got %d blasts", len(blasts))
	}
	if blasts[0].Weapon != a.ID || blasts[1].Weapon != b.ID {
		t.Errorf("unexpected blast order %v, %v", blasts[0].Weapon, blasts[1].Weapon)
	}
	if len(w.Weapons()) != 0 {
		t.Error("both bombs should be gone")
	}
}

func TestBlastKillCreditsOwner(t *testing.T) {
	w := NewWorld(openGrid(9, 3), testRules(), 1)
	killer := w.AddPlayer(0, "k")
	victim := w.AddPlayer(0, "v")
	placeAt(&killer.Body, 1, 1)
	placeAt(&victim.Body, 5, 1)
	victim.Lives = 1

	bomb := w.SpawnWeapon(TimedBomb, killer.ID, CellCenter(4, CellSize), CellCenter(1, CellSize))
	bomb.Fuse = 0.01

	res := w.Step(0.1)
	if victim.Alive {
		t.Fatal("victim should be dead")
	}
	if killer.Kills != 1 {
		t.Errorf("expected 1 kill credited, got %d", killer.Kills)
	}
	if len(res.Kills) != 1 || res.Kills[0].Victim != victim.ID || !res.Kills[0].Player {
		t.Errorf("unexpected kills %+v", res.Kills)
	}
}

func TestEnemyDestroyedThenPurged(t *testing.T) {
	w := NewWorld(openGrid(9, 3), testRules(), 1)
	e := w.AddEnemy(EnemyWeak, CellCenter(3, CellSize), CellCenter(1, CellSize))
	e.Speed = 0
	bomb := w.SpawnWeapon(TimedBomb, 0, CellCenter(3, CellSize), CellCenter(1, CellSize))
	bomb.Fuse = 0.01

	w.Step(0.1)
	if !e.Destroyed {
		t.Fatal("enemy should be destroyed")
	}
	if len(w.Enemies()) != 1 {
		t.Fatal("destroyed enemy should stay for the death window")
	}
	for i := 0; i < 10; i++ {
		w.Step(0.1)
	}
	if len(w.Enemies()) != 0 {
		t.Error("enemy should be purged after the death window")
	}
}

func TestEnemyContactDamage(t *testing.T) {
	r := testRules()
	r.EnemyContact = true
	w := NewWorld(openGrid(9, 3), r, 1)
	p := w.AddPlayer(0, "a")
	placeAt(&p.Body, 3, 1)
	e := w.AddEnemy(EnemyWeak, p.X, p.Y)
	e.Speed = 0

	w.Step(0.1)
	if p.Lives != PlayerLives-1 {
		t.Errorf("expected contact hit, lives = %d", p.Lives)
	}
}
