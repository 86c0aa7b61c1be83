package server

import (
	"sync"

	"arena-server/internal/config"
	"arena-server/internal/session"
	"arena-server/internal/store"

	"go.uber.org/zap"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub tracks connected clients and hands them the session coordinator
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	// Connection limiting, accessed from HTTP handlers
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	sessions  *session.Coordinator
	presets   *config.Presets
	defPreset string
	matches   store.Recorder
	verifier  *Verifier
	cfg       config.ServerConfig
	log       *zap.Logger
}

// HubOptions are the collaborators a Hub needs
type HubOptions struct {
	Server        config.ServerConfig
	Sessions      *session.Coordinator
	Presets       *config.Presets
	DefaultPreset string
	Matches       store.Recorder
	Verifier      *Verifier
	Logger        *zap.Logger
}

// NewHub creates a hub
func NewHub(opts HubOptions) *Hub {
	h := &Hub{
		clients:   make(map[*Client]bool),
		ipConns:   make(map[string]int),
		sessions:  opts.Sessions,
		presets:   opts.Presets,
		defPreset: opts.DefaultPreset,
		matches:   opts.Matches,
		verifier:  opts.Verifier,
		cfg:       opts.Server,
		log:       opts.Logger,
	}
	if h.presets == nil {
		h.presets = config.DefaultPresets()
	}
	if h.matches == nil {
		h.matches = store.Nop{}
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

// unregister drops the client and releases its seat
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.leaveSession()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
