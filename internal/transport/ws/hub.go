package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"cuestionarios/internal/model"
)

// MsgSnapshot is sent once on connect with the full session view
const MsgSnapshot model.EventType = "snapshot"

// Hub fans session events out to the WebSocket connections watching each session
type Hub struct {
	// session ID -> connections
	conns  map[string]map[*Connection]struct{}
	logger *zap.Logger

	// Channels for coordination
	register   chan *subscription
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	disconnect chan string
	quit       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// Connection represents a WebSocket connection watching one session
type Connection struct {
	SessionID string
	Send      chan []byte
}

// NewConnection creates a connection with a buffered send queue
func NewConnection(sessionID string) *Connection {
	return &Connection{SessionID: sessionID, Send: make(chan []byte, 256)}
}

type subscription struct {
	conn     *Connection
	snapshot func() []byte
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SessionID string
	Data      []byte
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		logger:     logger.Named("ws"),
		register:   make(chan *subscription),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		disconnect: make(chan string),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case sub := <-h.register:
			conn := sub.conn
			if h.conns[conn.SessionID] == nil {
				h.conns[conn.SessionID] = make(map[*Connection]struct{})
			}
			h.conns[conn.SessionID][conn] = struct{}{}
			if sub.snapshot != nil {
				if data := sub.snapshot(); data != nil {
					conn.Send <- data
				}
			}
			h.logger.Debug("subscriber connected", zap.String("session", conn.SessionID), zap.Int("subscribers", len(h.conns[conn.SessionID])))

		case conn := <-h.unregister:
			h.remove(conn)

		case id := <-h.disconnect:
			for conn := range h.conns[id] {
				h.remove(conn)
			}

		case msg := <-h.broadcast:
			for conn := range h.conns[msg.SessionID] {
				select {
				case conn.Send <- msg.Data:
				default:
					// Slow subscriber, drop the message
					h.logger.Warn("dropping event for slow subscriber", zap.String("session", msg.SessionID))
				}
			}

		case <-h.quit:
			for _, set := range h.conns {
				for conn := range set {
					close(conn.Send)
				}
			}
			h.conns = nil
			return
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	set, ok := h.conns[conn.SessionID]
	if !ok {
		return
	}
	if _, ok := set[conn]; !ok {
		return
	}
	delete(set, conn)
	close(conn.Send)
	if len(set) == 0 {
		delete(h.conns, conn.SessionID)
	}
	h.logger.Debug("subscriber disconnected", zap.String("session", conn.SessionID))
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.Subscribe(conn, nil)
}

// Subscribe adds a connection and queues snapshot() as its first message.
// The snapshot is built on the hub loop, so every event broadcast after it
// reaches the connection and none lands ahead of it. snapshot must not call
// back into the hub.
func (h *Hub) Subscribe(conn *Connection, snapshot func() []byte) {
	select {
	case h.register <- &subscription{conn: conn, snapshot: snapshot}:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BroadcastToSession sends an event to every subscriber of a session (implements service.Broadcaster)
func (h *Hub) BroadcastToSession(sessionID string, event model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{SessionID: sessionID, Data: data}:
	case <-h.done:
	}
}

// DisconnectSession closes every subscriber of a session (implements service.Broadcaster)
func (h *Hub) DisconnectSession(sessionID string) {
	select {
	case h.disconnect <- sessionID:
	case <-h.done:
	}
}

// Stop closes all connections and stops the hub loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.done
}
