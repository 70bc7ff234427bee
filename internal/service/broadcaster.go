package service

import "cuestionarios/internal/model"

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSession(sessionID string, event model.Event)
	DisconnectSession(sessionID string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToSession(string, model.Event) {}
func (nopBroadcaster) DisconnectSession(string)               {}
