package game

import (
	"bytes"
	"testing"

	"arena-server/internal/protocol"
)

func TestSnapshotThenDeltaIsEmpty(t *testing.T) {
	w := NewWorld(GenerateMap(15, 13, 4, DefaultMapOptions()), DefaultRules(), 4)
	w.AddPlayer(0, "a")
	w.AddPlayer(0, "b")
	w.SpawnEnemies(EnemyCounts{Weak: 3})
	w.SpawnWeapon(TimedBomb, 0, 1.5, 1.5)
	w.SpawnPowerUp(SpeedUp, CellPos{1, 3})

	d := NewDiffer()
	snap := d.Snapshot(w)
	if len(snap.Players) != 2 || len(snap.Enemies) != 3 || len(snap.Weapons) != 1 || len(snap.PowerUps) != 1 {
		t.Fatalf("snapshot missing entities: %+v", snap)
	}
	if snap.Map.Width != 15 || snap.Map.Height != 13 || len(snap.Map.Grid) != 13 || len(snap.Map.Grid[0]) != 15 {
		t.Fatalf("unexpected map layout %dx%d", snap.Map.Width, snap.Map.Height)
	}

	delta := d.Delta(w)
	if !delta.Empty() {
		t.Errorf("expected empty delta, got %+v", delta)
	}
}

func TestSnapshotAfterDetonationThenDeltaIsEmpty(t *testing.T) {
	g := openGrid(9, 3)
	g.Set(2, 1, CellBreakable)
	w := NewWorld(g, testRules(), 1)
	bomb := w.SpawnWeapon(TimedBomb, 0, CellCenter(3, CellSize), CellCenter(1, CellSize))
	bomb.Fuse = 0.01
	w.Step(0.1)
	if len(w.Blasts()) != 1 {
		t.Fatalf("expected a detonation, got %d", len(w.Blasts()))
	}

	d := NewDiffer()
	d.Snapshot(w)
	for i := 0; i < 2; i++ {
		if delta := d.Delta(w); !delta.Empty() {
			t.Fatalf("delta %d after snapshot not empty: %+v", i, delta)
		}
	}
}

func TestExplosionsReportedOnce(t *testing.T) {
	w := NewWorld(openGrid(9, 3), testRules(), 1)
	bomb := w.SpawnWeapon(TimedBomb, 0, CellCenter(3, CellSize), CellCenter(1, CellSize))

	d := NewDiffer()
	d.Snapshot(w)
	bomb.Fuse = 0.01
	w.Step(0.1)

	if first := d.Delta(w); len(first.Explosions) != 1 {
		t.Fatalf("expected one explosion, got %+v", first.Explosions)
	}
	if again := d.Delta(w); !again.Empty() {
		t.Errorf("repeated delta without a step should be empty, got %+v", again)
	}
}

func TestDeltaReportsChanges(t *testing.T) {
	g := openGrid(9, 3)
	g.Set(2, 1, CellBreakable)
	w := NewWorld(g, testRules(), 1)
	bomb := w.SpawnWeapon(TimedBomb, 0, CellCenter(3, CellSize), CellCenter(1, CellSize))

	d := NewDiffer()
	d.Snapshot(w)

	bomb.Fuse = 0.01
	w.Step(0.1)
	delta := d.Delta(w)

	if len(delta.Cells) != 1 || delta.Cells[0] != (protocol.CellChange{X: 2, Y: 1, Kind: int8(CellEmpty)}) {
		t.Errorf("expected one cleared cell, got %+v", delta.Cells)
	}
	if len(delta.Removed.Weapons) != 1 || delta.Removed.Weapons[0] != uint32(bomb.ID) {
		t.Errorf("expected bomb removal, got %+v", delta.Removed)
	}
	if len(delta.Explosions) != 1 || delta.Explosions[0].Weapon != uint32(bomb.ID) {
		t.Errorf("expected one explosion, got %+v", delta.Explosions)
	}

	// nothing left to report
	w.Step(0.1)
	if next := d.Delta(w); !next.Empty() {
		t.Errorf("expected quiet delta, got %+v", next)
	}
}

func TestDeltaWithoutSnapshotCarriesEverything(t *testing.T) {
	w := NewWorld(openGrid(5, 5), testRules(), 1)
	w.AddPlayer(0, "a")
	delta := NewDiffer().Delta(w)
	if len(delta.Players) != 1 {
		t.Errorf("expected new player in delta, got %d", len(delta.Players))
	}
	if len(delta.Cells) != openGrid(5, 5).Count(CellSolid) {
		t.Errorf("expected every solid cell, got %d", len(delta.Cells))
	}
}

// buildPair returns two worlds with the same content added in opposite order
func buildPair() (*World, *World) {
	build := func(ids []EntityID) *World {
		w := NewWorld(GenerateMap(11, 11, 3, DefaultMapOptions()), testRules(), 3)
		for _, id := range ids {
			p := w.AddPlayer(id, "c")
			cell := 1
			if id == 20 {
				cell = 9
			}
			placeAt(&p.Body, cell, cell)
			p.Color = "#fff"
		}
		return w
	}
	return build([]EntityID{10, 20}), build([]EntityID{20, 10})
}

func TestDeltaBytesIndependentOfInsertionOrder(t *testing.T) {
	a, b := buildPair()
	da, db := NewDiffer(), NewDiffer()

	for i := 0; i < 5; i++ {
		for _, w := range []*World{a, b} {
			w.SetInput(10, Input{Right: i%2 == 0, Down: true})
			w.SetInput(20, Input{Up: true})
			w.Step(testDT)
		}
		deltaA, deltaB := da.Delta(a), db.Delta(b)
		ba, err := protocol.EncodeDelta(&deltaA)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		bb, err := protocol.EncodeDelta(&deltaB)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.Equal(ba, bb) {
			t.Fatalf("tick %d: deltas differ", i)
		}
	}
}
