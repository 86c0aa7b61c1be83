package protocol

import "encoding/json"

// Client -> Server message types
const (
	MsgCreate = "create" // create session
	MsgJoin   = "join"
	MsgLeave  = "leave"
	MsgInput  = "input"
	MsgPlace  = "place" // place weapon in a slot
	MsgList   = "list"  // list sessions
)

// Server -> Client message types
const (
	MsgCreated      = "created"
	MsgJoined       = "joined"
	MsgSessions     = "sessions"
	MsgError        = "error"
	MsgSnapshot     = "snapshot"
	MsgUpdate       = "update"
	MsgGameOver     = "game_over"
	MsgDisconnected = "player_disconnected"
)

// Join failure reasons
const (
	ReasonNotFound = "not_found"
	ReasonFull     = "full"
	ReasonClosed   = "closed"
	ReasonInvalid  = "invalid"
)

// Envelope wraps all JSON control messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until the type is known
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CreateMsg asks for a new session. Zero fields fall back to the preset.
type CreateMsg struct {
	Name       string `json:"name"`
	Preset     string `json:"preset"`
	Mode       string `json:"mode"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	MaxPlayers int    `json:"max_players"`
}

// JoinMsg is sent when a client wants to join a session
type JoinMsg struct {
	SessionID string `json:"sid"`
}

// InputMsg is the held-key state of one client
type InputMsg struct {
	Up     bool `json:"up"`
	Down   bool `json:"down"`
	Left   bool `json:"left"`
	Right  bool `json:"right"`
	Place1 bool `json:"place1"`
	Place2 bool `json:"place2"`
	Action bool `json:"action"`
}

// PlaceMsg requests a weapon placement in a slot
type PlaceMsg struct {
	Slot int `json:"slot"`
}

// CreatedMsg confirms session creation
type CreatedMsg struct {
	SessionID string `json:"sid"`
}

// JoinedMsg confirms a join; the snapshot follows as a binary frame
type JoinedMsg struct {
	SessionID string `json:"sid"`
	PlayerID  uint32 `json:"player_id"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Reason string `json:"reason"`
	Msg    string `json:"msg,omitempty"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	Tick       uint64 `json:"tick"`
}
