package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"meetsync/internal/cache"
	"meetsync/internal/service"
	"meetsync/internal/validation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

type joinMeetingPayload struct {
	MeetingID string `json:"meetingId" validate:"required"`
	UID       string `json:"uid" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

type sendMessagePayload struct {
	MeetingID string `json:"meetingId" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

// Handler handles WebSocket connections
type Handler struct {
	hub        *Hub
	meetingSvc *service.MeetingService
	sessions   cache.SessionCache
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, meetingSvc *service.MeetingService, sessions cache.SessionCache) *Handler {
	return &Handler{
		hub:        hub,
		meetingSvc: meetingSvc,
		sessions:   sessions,
	}
}

// client tracks the per-connection state built up by join-meeting.
type client struct {
	conn *Connection
	uid  string
	name string
}

// ServeWS handles GET /ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	sessionID := "s_" + uuid.New().String()[:8]
	conn := &Connection{
		SessionID: sessionID,
		Send:      make(chan []byte, 256),
		Hub:       h.hub,
	}

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, &client{conn: conn})
}

func (h *Handler) readPump(wsConn *websocket.Conn, c *client) {
	defer func() {
		h.disconnect(c)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.send(c.conn, EventError, map[string]string{"message": "malformed message"})
			continue
		}

		switch msg.Type {
		case EventJoinMeeting:
			h.handleJoin(c, msg.Payload)
		case EventSendMessage:
			h.handleSendMessage(c, msg.Payload)
		default:
			h.send(c.conn, EventError, map[string]string{"message": "unknown event: " + msg.Type})
		}
	}
}

func (h *Handler) handleJoin(c *client, payload json.RawMessage) {
	var req joinMeetingPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.send(c.conn, EventJoinError, map[string]string{"message": "malformed join payload"})
		return
	}
	if err := validation.Struct(&req); err != nil {
		h.send(c.conn, EventJoinError, map[string]string{"message": "meetingId, uid and name are required"})
		return
	}
	if c.conn.MeetingID != "" {
		h.send(c.conn, EventJoinError, map[string]string{"message": "already joined a meeting"})
		return
	}

	ctx := context.Background()
	meeting, err := h.meetingSvc.Join(ctx, req.MeetingID, req.UID, req.Name, c.conn.SessionID)
	if err != nil {
		h.send(c.conn, EventJoinError, map[string]string{"message": joinErrorMessage(err)})
		return
	}

	c.conn.MeetingID = req.MeetingID
	c.uid = req.UID
	c.name = req.Name
	h.hub.Register(c.conn)

	if err := h.sessions.Set(ctx, &cache.Session{
		SessionID: c.conn.SessionID,
		MeetingID: req.MeetingID,
		UID:       req.UID,
		Name:      req.Name,
	}); err != nil {
		log.Printf("failed to record session %s: %v", c.conn.SessionID, err)
	}

	h.send(c.conn, EventJoinedMeeting, map[string]interface{}{
		"meetingId":    meeting.MeetingID,
		"participants": meeting.Participants,
		"messages":     meeting.Messages,
		"createdBy":    meeting.CreatedBy,
	})
}

func (h *Handler) handleSendMessage(c *client, payload json.RawMessage) {
	var req sendMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.send(c.conn, EventError, map[string]string{"message": "malformed message payload"})
		return
	}
	if err := validation.Struct(&req); err != nil {
		h.send(c.conn, EventError, map[string]string{"message": "meetingId and text are required"})
		return
	}
	if c.conn.MeetingID == "" || req.MeetingID != c.conn.MeetingID {
		h.send(c.conn, EventError, map[string]string{"message": "not joined to this meeting"})
		return
	}

	// new-message fans out to the whole room, sender included, from the registry.
	_, err := h.meetingSvc.AddMessage(context.Background(), req.MeetingID, c.uid, c.name, req.Text)
	if err != nil {
		h.send(c.conn, EventError, map[string]string{"message": sendErrorMessage(err)})
	}
}

// disconnect routes a transport-level close to Leave. The session index is
// authoritative so the leave still resolves when this instance did not
// accept the original join.
func (h *Handler) disconnect(c *client) {
	if c.conn.MeetingID == "" {
		return
	}

	ctx := context.Background()
	h.hub.Unregister(c.conn)

	meetingID := c.conn.MeetingID
	if session, err := h.sessions.Get(ctx, c.conn.SessionID); err != nil {
		log.Printf("failed to resolve session %s: %v", c.conn.SessionID, err)
	} else if session != nil {
		meetingID = session.MeetingID
	}

	h.meetingSvc.Leave(ctx, meetingID, c.conn.SessionID)

	if err := h.sessions.Delete(ctx, c.conn.SessionID); err != nil {
		log.Printf("failed to delete session %s: %v", c.conn.SessionID, err)
	}
}

// send writes an event straight to this connection, bypassing the hub.
// Needed before registration (join-error), and safe afterwards: enqueue
// tolerates the hub closing the room mid-dispatch.
func (h *Handler) send(conn *Connection, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	envelope, _ := json.Marshal(&Message{Type: event, Payload: data})
	conn.enqueue(envelope)
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "meeting not found"
	case errors.Is(err, service.ErrInactive):
		return "meeting has ended"
	case errors.Is(err, service.ErrMeetingFull):
		return "meeting is full"
	case errors.Is(err, service.ErrInvalidInput):
		return "invalid meeting id or user data"
	default:
		return "failed to join meeting"
	}
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "meeting not found"
	case errors.Is(err, service.ErrInactive):
		return "meeting has ended"
	case errors.Is(err, service.ErrInvalidInput):
		return "message text must be 1-1000 characters"
	default:
		return "failed to send message"
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
