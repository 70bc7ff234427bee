package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cuestionarios/internal/model"
	"cuestionarios/internal/service"
	"cuestionarios/internal/transport/rest/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the REST routes
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub        *Hub
	sessionSvc *service.SessionService
	auth       *middleware.AuthMiddleware
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, sessionSvc *service.SessionService, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		hub:        hub,
		sessionSvc: sessionSvc,
		auth:       auth,
	}
}

// SessionWS handles GET /v1/ws/sessions/{id}?token=
func (h *Handler) SessionWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	ctx, ok := h.auth.Authenticate(r.Context(), token)
	if !ok {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	sess, err := h.sessionSvc.Get(ctx, id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err := h.sessionSvc.Authorize(sess, middleware.GetUsuario(ctx)); err != nil {
		http.Error(w, "token not valid for this session", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConnection(id)
	h.hub.Subscribe(conn, func() []byte {
		data, err := json.Marshal(model.Event{SessionID: id, Type: MsgSnapshot, Payload: h.sessionSvc.View(sess)})
		if err != nil {
			h.hub.logger.Error("failed to encode snapshot", zap.String("session", id), zap.Error(err))
			return nil
		}
		return data
	})

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Subscribers only listen; answers go through the REST routes.
		if _, _, err := wsConn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.hub.logger.Debug("websocket read failed", zap.String("session", conn.SessionID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
