package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"arena-server/internal/config"

	"go.uber.org/zap"
)

func sampleRecord(sid string, ended time.Time) MatchRecord {
	return MatchRecord{
		SessionID: sid,
		Name:      "classic",
		Mode:      "battle",
		Result:    "win",
		Reason:    "last player standing",
		Ticks:     900,
		StartedAt: ended.Add(-30 * time.Second),
		EndedAt:   ended,
		Players: []PlayerResult{
			{PlayerID: 1, ClientID: "alice", Kills: 2, Alive: true, Winner: true},
			{PlayerID: 2, ClientID: "bob", Kills: 0},
		},
	}
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "arena.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := db.Record(ctx, sampleRecord("s-1", now.Add(-time.Minute))); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := db.Record(ctx, sampleRecord("s-2", now)); err != nil {
		t.Fatalf("record: %v", err)
	}

	recs, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(recs))
	}
	if recs[0].SessionID != "s-2" {
		t.Errorf("expected newest first, got %s", recs[0].SessionID)
	}
	if !recs[0].EndedAt.Equal(now) {
		t.Errorf("ended_at = %v, want %v", recs[0].EndedAt, now)
	}
	if recs[0].Ticks != 900 || recs[0].Result != "win" {
		t.Errorf("unexpected record %+v", recs[0])
	}
	if len(recs[0].Players) != 2 || !recs[0].Players[0].Winner || recs[0].Players[0].Kills != 2 {
		t.Errorf("unexpected players %+v", recs[0].Players)
	}

	limited, err := db.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d", len(limited))
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "arena.db")
	db, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Record(ctx, sampleRecord("s-1", time.Now())); err != nil {
		t.Fatalf("record: %v", err)
	}
	db.Close()

	db, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	recs, err := db.Recent(ctx, 10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected persisted match, got %d (%v)", len(recs), err)
	}
}

func TestOpenNone(t *testing.T) {
	rec, err := Open(context.Background(), config.StoreConfig{Driver: "none"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := rec.(Nop); !ok {
		t.Errorf("expected Nop recorder, got %T", rec)
	}
	if _, err := Open(context.Background(), config.StoreConfig{Driver: "mongo"}, zap.NewNop()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

// gateRecorder blocks writes until released
type gateRecorder struct {
	mu      sync.Mutex
	gate    chan struct{}
	records []MatchRecord
	closed  bool
}

func (g *gateRecorder) Record(_ context.Context, rec MatchRecord) error {
	<-g.gate
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = append(g.records, rec)
	return nil
}

func (g *gateRecorder) Recent(context.Context, int) ([]MatchRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]MatchRecord(nil), g.records...), nil
}

func (g *gateRecorder) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func TestAsyncDropsWhenFull(t *testing.T) {
	next := &gateRecorder{gate: make(chan struct{})}
	a := NewAsync(next, 2, zap.NewNop())

	// the writer takes the first record and blocks on the gate,
	// leaving room for two more in the queue
	accepted := 0
	for i := 0; i < 10; i++ {
		if a.Enqueue(sampleRecord("s", time.Now())) {
			accepted++
		}
		time.Sleep(time.Millisecond)
	}
	if accepted > 3 {
		t.Errorf("queue accepted %d records, want at most 3", accepted)
	}
	if a.Dropped() != int64(10-accepted) {
		t.Errorf("dropped = %d, want %d", a.Dropped(), 10-accepted)
	}

	close(next.gate)
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	recs, _ := next.Recent(context.Background(), 0)
	if len(recs) != accepted {
		t.Errorf("writer persisted %d records, want %d", len(recs), accepted)
	}
	if !next.closed {
		t.Error("underlying recorder not closed")
	}
}

func TestAsyncRecordNeverBlocks(t *testing.T) {
	next := &gateRecorder{gate: make(chan struct{})}
	a := NewAsync(next, 1, zap.NewNop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			a.Record(context.Background(), sampleRecord("s", time.Now()))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a stalled writer")
	}
	close(next.gate)
	a.Close()
}
