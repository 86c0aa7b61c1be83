package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"arena-server/internal/game"
	"arena-server/internal/protocol"
	"arena-server/internal/session"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait   = 10 * time.Second
	defaultPongWait    = 60 * time.Second
	defaultMaxMessage  = 4096
	defaultSendBufSize = 256
	maxMessagesPerSec  = 50
	maxSessionNameLen  = 30
)

type outbound struct {
	binary bool
	data   []byte
}

// Client is one WebSocket connection. It holds at most one seat at a time.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan outbound
	done       chan struct{}
	closeOnce  sync.Once
	id         Identity
	remoteAddr string
	log        *zap.Logger

	writeWait  time.Duration
	pongWait   time.Duration
	maxMessage int64

	msgCount   int
	msgResetAt time.Time

	mu        sync.Mutex
	sessionID string
	playerID  game.EntityID
	joinSeq   uint64
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, id Identity, remoteAddr string) *Client {
	cfg := hub.cfg
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan outbound, orDefault(cfg.SendBuffer, defaultSendBufSize)),
		done:       make(chan struct{}),
		id:         id,
		remoteAddr: remoteAddr,
		log:        hub.log.With(zap.String("client", id.ClientID), zap.String("ip", remoteAddr)),
		writeWait:  cfg.WriteTimeout,
		pongWait:   cfg.ReadTimeout,
		maxMessage: int64(cfg.MaxMessageSize),
	}
	if c.writeWait <= 0 {
		c.writeWait = defaultWriteWait
	}
	if c.pongWait <= 0 {
		c.pongWait = defaultPongWait
	}
	if c.maxMessage <= 0 {
		c.maxMessage = defaultMaxMessage
	}
	return c
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// ReadPump reads control messages until the connection fails
func (c *Client) ReadPump() {
	defer func() {
		c.closeOnce.Do(func() { close(c.done) })
		c.hub.unregister(c)
		c.hub.TrackDisconnect(c.remoteAddr)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws read error", zap.Error(err))
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn("rate limit exceeded, disconnecting")
			break
		}

		if msgType != websocket.TextMessage {
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker((c.pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			kind := websocket.TextMessage
			if msg.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, msg.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// SendJSON queues a JSON control message
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal error", zap.Error(err))
		return
	}
	c.queue(outbound{data: data})
}

// SendBinary queues an encoded state frame
func (c *Client) SendBinary(data []byte) {
	c.queue(outbound{binary: true, data: data})
}

func (c *Client) queue(msg outbound) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		// Client too slow, drop message
	}
}

func (c *Client) sendError(reason, msg string) {
	c.SendJSON(protocol.Envelope{T: protocol.MsgError, Data: protocol.ErrorMsg{Reason: reason, Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env protocol.InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug("unmarshal error", zap.Error(err))
		return
	}

	switch env.T {
	case protocol.MsgList:
		c.handleList()
	case protocol.MsgCreate:
		c.handleCreate(env.D)
	case protocol.MsgJoin:
		c.handleJoin(env.D)
	case protocol.MsgInput:
		c.handleInput(env.D)
	case protocol.MsgPlace:
		c.handlePlace(env.D)
	case protocol.MsgLeave:
		c.leaveSession()
	}
}

func (c *Client) handleList() {
	c.SendJSON(protocol.Envelope{T: protocol.MsgSessions, Data: c.hub.sessions.List()})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg protocol.CreateMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(protocol.ReasonInvalid, "malformed create")
			return
		}
	}

	name := msg.Preset
	if name == "" {
		name = c.hub.defPreset
	}
	preset, ok := c.hub.presets.Get(name)
	if !ok {
		c.sendError(protocol.ReasonInvalid, "unknown preset "+name)
		return
	}

	cfg := session.FromPreset(preset)
	if msg.Name != "" {
		cfg.Name = msg.Name
		if len(cfg.Name) > maxSessionNameLen {
			cfg.Name = cfg.Name[:maxSessionNameLen]
		}
	}
	if msg.Mode != "" {
		cfg.Mode = game.ParseMode(msg.Mode)
	}
	if msg.Width > 0 {
		cfg.Width = msg.Width
	}
	if msg.Height > 0 {
		cfg.Height = msg.Height
	}
	if msg.MaxPlayers > 0 {
		cfg.MaxPlayers = msg.MaxPlayers
		if cfg.MinPlayers > cfg.MaxPlayers {
			cfg.MinPlayers = cfg.MaxPlayers
		}
	}

	sid, err := c.hub.sessions.CreateSession(cfg)
	if err != nil {
		c.sendError(reasonFor(err), err.Error())
		return
	}
	c.SendJSON(protocol.Envelope{T: protocol.MsgCreated, Data: protocol.CreatedMsg{SessionID: sid}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg protocol.JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.SessionID == "" {
		c.sendError(protocol.ReasonInvalid, "malformed join")
		return
	}

	c.leaveSession()
	res, err := c.hub.sessions.JoinSession(msg.SessionID, c.id.ClientID)
	if err != nil {
		c.sendError(reasonFor(err), err.Error())
		return
	}

	c.mu.Lock()
	c.joinSeq++
	seq := c.joinSeq
	c.sessionID = msg.SessionID
	c.playerID = res.PlayerID
	c.mu.Unlock()

	// joined is queued before the forwarder starts, so it precedes the snapshot
	c.SendJSON(protocol.Envelope{T: protocol.MsgJoined, Data: protocol.JoinedMsg{
		SessionID: msg.SessionID,
		PlayerID:  uint32(res.PlayerID),
	}})
	go c.forward(seq, res.Updates)
}

// forward copies session frames to the socket until the session closes the channel
func (c *Client) forward(seq uint64, updates <-chan []byte) {
	for data := range updates {
		c.SendBinary(data)
	}
	c.mu.Lock()
	if c.joinSeq == seq {
		c.sessionID = ""
		c.playerID = 0
	}
	c.mu.Unlock()
}

func (c *Client) seat() (string, game.EntityID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID, c.playerID, c.sessionID != ""
}

func (c *Client) handleInput(data json.RawMessage) {
	sid, pid, ok := c.seat()
	if !ok {
		return
	}
	var msg protocol.InputMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.hub.sessions.EnqueueInput(sid, pid, game.Input{
		Up:           msg.Up,
		Down:         msg.Down,
		Left:         msg.Left,
		Right:        msg.Right,
		PlaceWeapon1: msg.Place1,
		PlaceWeapon2: msg.Place2,
		Action:       msg.Action,
	})
}

func (c *Client) handlePlace(data json.RawMessage) {
	sid, pid, ok := c.seat()
	if !ok {
		return
	}
	var msg protocol.PlaceMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.hub.sessions.PlaceWeapon(sid, pid, msg.Slot)
}

// leaveSession gives up the current seat, if any
func (c *Client) leaveSession() {
	c.mu.Lock()
	sid := c.sessionID
	c.sessionID = ""
	c.playerID = 0
	c.mu.Unlock()
	if sid != "" {
		c.hub.sessions.LeaveSession(sid, c.id.ClientID)
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return protocol.ReasonNotFound
	case errors.Is(err, session.ErrSessionFull), errors.Is(err, session.ErrTooManySessions):
		return protocol.ReasonFull
	case errors.Is(err, session.ErrSessionClosed):
		return protocol.ReasonClosed
	default:
		return protocol.ReasonInvalid
	}
}
