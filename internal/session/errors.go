package session

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionFull      = errors.New("session full")
	ErrInvalidMapConfig = errors.New("invalid map config")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrTooManySessions  = errors.New("too many sessions")
	ErrAlreadyJoined    = errors.New("client already joined")
	ErrSessionClosed    = errors.New("session closed")
)
