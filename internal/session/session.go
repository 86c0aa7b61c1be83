package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"arena-server/internal/game"
	"arena-server/internal/protocol"
	"arena-server/internal/store"

	"go.uber.org/zap"
)

// Status is the lifecycle state of a session
type Status int32

const (
	StatusPending Status = iota
	StatusActive
	StatusPaused
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	default:
		return "finished"
	}
}

type commandKind uint8

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdInput
	cmdPlace
)

type command struct {
	kind     commandKind
	player   game.EntityID
	clientID string
	input    game.Input
	slot     int
	sub      *subscriber
}

// subscriber receives the encoded frames of one player
type subscriber struct {
	player   game.EntityID
	ch       chan []byte
	fresh    bool // still owed its first snapshot
	overflow int
}

// JoinResult is returned by a successful join
type JoinResult struct {
	PlayerID game.EntityID
	Updates  <-chan []byte // closed when the player leaves or the session ends
}

// Session runs one isolated match. Commands from any goroutine are queued
// under mu and applied at the start of the next tick; the world itself is
// only touched by the ticking goroutine.
type Session struct {
	ID        string
	Name      string
	Seed      int64
	CreatedAt time.Time

	cfg      Config
	dt       float64
	log      *zap.Logger
	recorder store.Recorder
	onClose  func(id string)
	bufSize  int

	mu        sync.Mutex
	queue     []command
	seats     map[string]game.EntityID // client id -> player
	owners    map[game.EntityID]string
	status    Status
	outcome   *game.Outcome
	everSeat  bool
	lastSeen  time.Time
	startedAt time.Time

	tick atomic.Uint64

	// tick goroutine only
	world    *game.World
	differ   *game.Differ
	subs     map[game.EntityID]*subscriber
	stepHook func(*game.World)

	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(id string, cfg Config, seed int64, log *zap.Logger, rec store.Recorder, bufSize int) *Session {
	grid := game.GenerateMap(cfg.Width, cfg.Height, seed, game.MapOptions{
		BlockDensity: cfg.BlockDensity,
		SafeZone:     cfg.SafeZone,
	})
	world := game.NewWorld(grid, cfg.rules(), seed)
	world.SpawnEnemies(cfg.Enemies)

	now := time.Now()
	return &Session{
		ID:        id,
		Name:      cfg.Name,
		Seed:      seed,
		CreatedAt: now,
		cfg:       cfg,
		dt:        1 / float64(cfg.TickRate),
		log:       log,
		recorder:  rec,
		bufSize:   bufSize,
		seats:     make(map[string]game.EntityID),
		owners:    make(map[game.EntityID]string),
		lastSeen:  now,
		world:     world,
		differ:    game.NewDiffer(),
		subs:      make(map[game.EntityID]*subscriber),
	}
}

// Status returns the current lifecycle state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Outcome returns the final result once the session finished
func (s *Session) Outcome() *game.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Info summarises the session for listings
func (s *Session) Info() protocol.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.SessionInfo{
		ID:         s.ID,
		Name:       s.Name,
		Mode:       s.cfg.Mode.String(),
		Status:     s.status.String(),
		Players:    len(s.seats),
		MaxPlayers: s.cfg.MaxPlayers,
		Tick:       s.tick.Load(),
	}
}

// join reserves a seat now; the player enters the world on the next tick.
// A rejected join leaves the session untouched.
func (s *Session) join(clientID string) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return JoinResult{}, ErrSessionClosed
	}
	if _, ok := s.seats[clientID]; ok {
		return JoinResult{}, ErrAlreadyJoined
	}
	if len(s.seats) >= s.cfg.MaxPlayers {
		return JoinResult{}, ErrSessionFull
	}

	id := s.world.NewID()
	sub := &subscriber{player: id, ch: make(chan []byte, s.bufSize), fresh: true}
	s.seats[clientID] = id
	s.owners[id] = clientID
	s.everSeat = true
	s.lastSeen = time.Now()
	s.queue = append(s.queue, command{kind: cmdJoin, player: id, clientID: clientID, sub: sub})
	return JoinResult{PlayerID: id, Updates: sub.ch}, nil
}

func (s *Session) leave(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.seats[clientID]
	if !ok {
		return
	}
	delete(s.seats, clientID)
	delete(s.owners, id)
	s.lastSeen = time.Now()
	s.queue = append(s.queue, command{kind: cmdLeave, player: id, clientID: clientID})
}

// playerOf returns the player seated for clientID
func (s *Session) playerOf(clientID string) (game.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.seats[clientID]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	return id, nil
}

// enqueue adds a command for a seated player; anything else is dropped
func (s *Session) enqueue(cmd command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[cmd.player]; !ok || s.status == StatusFinished {
		return
	}
	s.queue = append(s.queue, cmd)
}

func (s *Session) setPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case paused && s.status == StatusActive:
		s.status = StatusPaused
	case !paused && s.status == StatusPaused:
		s.status = StatusActive
	default:
		return
	}
	s.log.Info("session status", zap.String("status", s.status.String()))
}

// Tick runs one fixed step: drain commands, step the world when active,
// then publish frames. It reports whether the session has finished.
func (s *Session) Tick() (finished bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tick panic", zap.Any("panic", r), zap.Stack("stack"))
			s.finish(&game.Outcome{Result: game.ResultError, Reason: fmt.Sprint(r)})
			finished = true
		}
	}()

	s.mu.Lock()
	if s.status == StatusFinished {
		s.mu.Unlock()
		return true
	}
	cmds := s.queue
	s.queue = nil
	s.mu.Unlock()

	leavers := s.apply(cmds)

	s.mu.Lock()
	if s.status == StatusPending && s.world.PlayerCount() >= s.cfg.MinPlayers {
		s.status = StatusActive
		s.startedAt = time.Now()
		s.log.Info("session active", zap.Int("players", s.world.PlayerCount()))
	}
	status := s.status
	abandoned := s.everSeat && len(s.seats) == 0
	s.mu.Unlock()

	if abandoned {
		s.finish(&game.Outcome{Result: game.ResultAbandoned, Reason: "all players left"})
		return true
	}

	var outcome *game.Outcome
	if status == StatusActive {
		if s.stepHook != nil {
			s.stepHook(s.world)
		}
		res := s.world.Step(s.dt)
		s.tick.Store(s.world.Tick())
		outcome = res.Outcome
	}

	s.publish(leavers)

	if outcome != nil {
		s.finish(outcome)
		return true
	}
	return false
}

// apply feeds queued commands into the world and returns who left
func (s *Session) apply(cmds []command) []game.EntityID {
	var leavers []game.EntityID
	for _, c := range cmds {
		switch c.kind {
		case cmdJoin:
			p := s.world.AddPlayer(c.player, c.clientID)
			s.subs[c.player] = c.sub
			s.log.Info("player joined", zap.Uint32("player", uint32(p.ID)), zap.String("client", c.clientID))
		case cmdLeave:
			s.world.RemovePlayer(c.player)
			if sub, ok := s.subs[c.player]; ok {
				close(sub.ch)
				delete(s.subs, c.player)
			}
			leavers = append(leavers, c.player)
			s.log.Info("player left", zap.Uint32("player", uint32(c.player)), zap.String("client", c.clientID))
		case cmdInput:
			s.world.SetInput(c.player, c.input)
		case cmdPlace:
			s.world.RequestWeapon(c.player, c.slot)
		}
	}
	return leavers
}

// publish sends disconnect notices, the tick's delta, and snapshots owed to
// new subscribers. Each frame is encoded once.
func (s *Session) publish(leavers []game.EntityID) {
	for _, id := range leavers {
		s.broadcast(&protocol.Frame{
			T:            protocol.MsgDisconnected,
			SessionID:    s.ID,
			Disconnected: &protocol.PlayerDisconnected{PlayerID: uint32(id)},
		}, false)
	}

	delta := s.differ.Delta(s.world)
	if !delta.Empty() {
		s.broadcast(&protocol.Frame{T: protocol.MsgUpdate, SessionID: s.ID, Delta: &delta}, false)
	}

	var fresh []*subscriber
	for _, sub := range s.subs {
		if sub.fresh {
			fresh = append(fresh, sub)
		}
	}
	if len(fresh) == 0 {
		return
	}
	snap := s.differ.Snapshot(s.world)
	data, err := protocol.Encode(&protocol.Frame{T: protocol.MsgSnapshot, SessionID: s.ID, Snapshot: &snap})
	if err != nil {
		s.log.Error("encode snapshot", zap.Error(err))
		return
	}
	for _, sub := range fresh {
		sub.fresh = false
		s.send(sub, data)
	}
}

// broadcast encodes a frame and pushes it to every subscriber that already
// has its snapshot, or to all of them when includeFresh is set.
func (s *Session) broadcast(f *protocol.Frame, includeFresh bool) {
	if len(s.subs) == 0 {
		return
	}
	data, err := protocol.Encode(f)
	if err != nil {
		s.log.Error("encode frame", zap.String("type", f.T), zap.Error(err))
		return
	}
	for _, sub := range s.subs {
		if sub.fresh && !includeFresh {
			continue
		}
		s.send(sub, data)
	}
}

// send never blocks; a slow subscriber loses the frame
func (s *Session) send(sub *subscriber, data []byte) {
	select {
	case sub.ch <- data:
	default:
		sub.overflow++
		if sub.overflow == 1 || sub.overflow%100 == 0 {
			s.log.Warn("subscriber lagging", zap.Uint32("player", uint32(sub.player)), zap.Int("dropped", sub.overflow))
		}
	}
}

// finish moves the session to Finished exactly once, notifies and releases
// subscribers, records the result and unregisters the session.
func (s *Session) finish(out *game.Outcome) {
	s.mu.Lock()
	if s.status == StatusFinished {
		s.mu.Unlock()
		return
	}
	s.status = StatusFinished
	s.outcome = out
	pending := s.queue
	s.queue = nil
	startedAt := s.startedAt
	s.mu.Unlock()

	winners := make([]uint32, len(out.Winners))
	for i, id := range out.Winners {
		winners[i] = uint32(id)
	}
	s.broadcast(&protocol.Frame{
		T:         protocol.MsgGameOver,
		SessionID: s.ID,
		GameOver: &protocol.GameOver{
			Result:  out.Result,
			Winners: winners,
			Reason:  out.Reason,
			Tick:    s.tick.Load(),
		},
	}, true)
	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
	for _, c := range pending {
		if c.kind == cmdJoin {
			close(c.sub.ch)
		}
	}

	s.record(out, startedAt)
	s.log.Info("session finished",
		zap.String("result", out.Result),
		zap.String("reason", out.Reason),
		zap.Uint64("tick", s.tick.Load()))

	if s.onClose != nil {
		s.onClose(s.ID)
	}
}

func (s *Session) record(out *game.Outcome, startedAt time.Time) {
	if s.recorder == nil {
		return
	}
	if startedAt.IsZero() {
		startedAt = s.CreatedAt
	}
	won := make(map[game.EntityID]bool, len(out.Winners))
	for _, id := range out.Winners {
		won[id] = true
	}
	rec := store.MatchRecord{
		SessionID: s.ID,
		Name:      s.Name,
		Mode:      s.cfg.Mode.String(),
		Result:    out.Result,
		Reason:    out.Reason,
		Ticks:     s.tick.Load(),
		StartedAt: startedAt,
		EndedAt:   time.Now(),
	}
	if s.world != nil {
		for _, p := range s.world.Players() {
			rec.Players = append(rec.Players, store.PlayerResult{
				PlayerID: uint32(p.ID),
				ClientID: p.ClientID,
				Kills:    p.Kills,
				Alive:    p.Alive,
				Winner:   won[p.ID],
			})
		}
	}
	if err := s.recorder.Record(context.Background(), rec); err != nil {
		s.log.Warn("record match", zap.Error(err))
	}
}

// run drives Tick from a ticker until the session finishes or ctx ends
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.Tick() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the tick goroutine, if any, and finishes the session
func (s *Session) Close(reason string) {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.finish(&game.Outcome{Result: game.ResultAbandoned, Reason: reason})
}

// idleSince reports when a pending session last saw a join or leave, and
// whether it is currently empty and not started
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.status == StatusPending && len(s.seats) == 0
}
