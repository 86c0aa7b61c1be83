package session

import (
	"context"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"arena-server/internal/game"
	"arena-server/internal/protocol"
	"arena-server/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const (
	DefaultMaxSessions = 100
	DefaultSendBuffer  = 64
)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger; sessions log through a child with their id
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithRecorder sets where finished matches are recorded. The recorder is
// called from tick goroutines, so it should not block.
func WithRecorder(r store.Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// WithMaxSessions caps concurrently live sessions
func WithMaxSessions(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxSessions = n
		}
	}
}

// WithTickRate sets the rate used when a session config leaves it zero
func WithTickRate(hz int) Option {
	return func(c *Coordinator) {
		if hz > 0 {
			c.tickRate = hz
		}
	}
}

// WithIdleTimeout closes pending sessions nobody joined within d
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.idleTimeout = d }
}

// WithSendBuffer sets the per-subscriber frame buffer
func WithSendBuffer(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.sendBuffer = n
		}
	}
}

// WithManualClock starts no goroutines; callers drive Session.Tick
func WithManualClock() Option {
	return func(c *Coordinator) { c.manual = true }
}

// Coordinator owns every live session
type Coordinator struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	log         *zap.Logger
	recorder    store.Recorder
	maxSessions int
	tickRate    int
	idleTimeout time.Duration
	sendBuffer  int
	manual      bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewCoordinator creates a coordinator and, unless the clock is manual,
// starts the idle janitor
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions:    make(map[string]*Session),
		log:         zap.NewNop(),
		recorder:    store.Nop{},
		maxSessions: DefaultMaxSessions,
		tickRate:    DefaultTickRate,
		sendBuffer:  DefaultSendBuffer,
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.manual && c.idleTimeout > 0 {
		c.wg.Add(1)
		go c.janitor()
	}
	return c
}

// deriveSeed maps a session id to a map seed
func deriveSeed(id string) int64 {
	sum := blake2b.Sum256([]byte(id))
	seed := int64(binary.LittleEndian.Uint64(sum[:8]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// CreateSession validates cfg, builds the world and starts its tick loop
func (c *Coordinator) CreateSession(cfg Config) (string, error) {
	if cfg.TickRate <= 0 {
		cfg.TickRate = c.tickRate
	}
	if err := cfg.normalize(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrSessionClosed
	}
	if len(c.sessions) >= c.maxSessions {
		return "", ErrTooManySessions
	}

	id := uuid.NewString()
	seed := cfg.Seed
	if seed == 0 {
		seed = deriveSeed(id)
	}
	log := c.log.With(zap.String("session", id))
	s := newSession(id, cfg, seed, log, c.recorder, c.sendBuffer)
	s.onClose = c.remove
	c.sessions[id] = s

	if !c.manual {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.run(ctx)
	}
	log.Info("session created",
		zap.String("name", cfg.Name),
		zap.String("mode", cfg.Mode.String()),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int64("seed", seed))
	return id, nil
}

func (c *Coordinator) remove(id string) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

// Session returns a live session by id
func (c *Coordinator) Session(id string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	return s, ok
}

// JoinSession reserves a seat for clientID
func (c *Coordinator) JoinSession(sid, clientID string) (JoinResult, error) {
	s, ok := c.Session(sid)
	if !ok {
		return JoinResult{}, ErrSessionNotFound
	}
	return s.join(clientID)
}

// LeaveSession releases the client's seat; unknown ids are ignored
func (c *Coordinator) LeaveSession(sid, clientID string) {
	if s, ok := c.Session(sid); ok {
		s.leave(clientID)
	}
}

// PlayerOf returns the player id holding clientID's seat
func (c *Coordinator) PlayerOf(sid, clientID string) (game.EntityID, error) {
	s, ok := c.Session(sid)
	if !ok {
		return 0, ErrSessionNotFound
	}
	return s.playerOf(clientID)
}

// EnqueueInput buffers a player's input for the next tick
func (c *Coordinator) EnqueueInput(sid string, pid game.EntityID, in game.Input) {
	if s, ok := c.Session(sid); ok {
		s.enqueue(command{kind: cmdInput, player: pid, input: in})
	}
}

// PlaceWeapon buffers a placement request for the next tick
func (c *Coordinator) PlaceWeapon(sid string, pid game.EntityID, slot int) {
	if s, ok := c.Session(sid); ok {
		s.enqueue(command{kind: cmdPlace, player: pid, slot: slot})
	}
}

// PauseSession freezes an active session
func (c *Coordinator) PauseSession(sid string) error {
	s, ok := c.Session(sid)
	if !ok {
		return ErrSessionNotFound
	}
	s.setPaused(true)
	return nil
}

// ResumeSession continues a paused session
func (c *Coordinator) ResumeSession(sid string) error {
	s, ok := c.Session(sid)
	if !ok {
		return ErrSessionNotFound
	}
	s.setPaused(false)
	return nil
}

// List returns info about all live sessions, oldest first
func (c *Coordinator) List() []protocol.SessionInfo {
	c.mu.RLock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	list := make([]protocol.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, s.Info())
	}
	return list
}

// Count returns the number of live sessions
func (c *Coordinator) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Shutdown finishes every session and stops background work
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	close(c.stop)
	done := make(chan struct{})
	go func() {
		for _, s := range sessions {
			s.Close("server shutdown")
		}
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// janitor closes pending sessions that stayed empty past the idle timeout
func (c *Coordinator) janitor() {
	defer c.wg.Done()
	interval := c.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.reapIdle(time.Now())
		case <-c.stop:
			return
		}
	}
}

func (c *Coordinator) reapIdle(now time.Time) int {
	c.mu.RLock()
	var idle []*Session
	for _, s := range c.sessions {
		since, empty := s.idleSince()
		if empty && now.Sub(since) >= c.idleTimeout {
			idle = append(idle, s)
		}
	}
	c.mu.RUnlock()

	for _, s := range idle {
		s.Close("idle timeout")
	}
	return len(idle)
}
