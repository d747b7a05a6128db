package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Event names are the wire contract; clients match on them verbatim.
const (
	EventJoinMeeting   = "join-meeting"
	EventJoinedMeeting = "joined-meeting"
	EventJoinError     = "join-error"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventSendMessage   = "send-message"
	EventNewMessage    = "new-message"
	EventError         = "error"
	EventMeetingEnded  = "meeting-ended"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections per meeting room
type Hub struct {
	// meetingID -> sessionID -> conn
	conns map[string]map[string]*Connection

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection subscribed to a meeting room
type Connection struct {
	MeetingID string
	SessionID string
	Send      chan []byte
	Hub       *Hub

	mu     sync.Mutex
	closed bool
}

// enqueue hands data to the write pump, dropping it if the buffer is full.
// Safe against a concurrently closed connection: the hub closes rooms while
// read pumps may still be dispatching inbound frames.
func (c *Connection) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		// Drop message if buffer full
	}
}

func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// BroadcastMessage is a message to fan out to a room
type BroadcastMessage struct {
	MeetingID string
	ToSession string // Non-empty means one session only
	Exclude   string // Session to skip when fanning out
	Close     bool   // Close every connection in the room instead of sending
	Message   *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.MeetingID] == nil {
				h.conns[conn.MeetingID] = make(map[string]*Connection)
			}
			h.conns[conn.MeetingID][conn.SessionID] = conn
			log.Printf("Session %s connected to meeting %s", conn.SessionID, conn.MeetingID)
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if sessions, ok := h.conns[conn.MeetingID]; ok {
				if existing, ok := sessions[conn.SessionID]; ok && existing == conn {
					delete(sessions, conn.SessionID)
					conn.closeSend()
					if len(sessions) == 0 {
						delete(h.conns, conn.MeetingID)
					}
					log.Printf("Session %s disconnected from meeting %s", conn.SessionID, conn.MeetingID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			if msg.Close {
				h.closeMeeting(msg.MeetingID)
				continue
			}

			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			if sessions, ok := h.conns[msg.MeetingID]; ok {
				if msg.ToSession != "" {
					if conn, ok := sessions[msg.ToSession]; ok {
						conn.enqueue(data)
					}
				} else {
					for sessionID, conn := range sessions {
						if msg.Exclude != "" && sessionID == msg.Exclude {
							continue
						}
						conn.enqueue(data)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) closeMeeting(meetingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessions, ok := h.conns[meetingID]; ok {
		for _, conn := range sessions {
			conn.closeSend()
		}
		delete(h.conns, meetingID)
		log.Printf("Closed all connections for meeting %s", meetingID)
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToMeeting sends an event to every session in a meeting room
// (implements service.Broadcaster)
func (h *Hub) BroadcastToMeeting(meetingID string, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		MeetingID: meetingID,
		Message: &Message{
			Type:    event,
			Payload: data,
		},
	}
}

// BroadcastToOthers sends an event to every session except one
// (implements service.Broadcaster)
func (h *Hub) BroadcastToOthers(meetingID, excludeSessionID string, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		MeetingID: meetingID,
		Exclude:   excludeSessionID,
		Message: &Message{
			Type:    event,
			Payload: data,
		},
	}
}

// SendToSession sends an event to a single session
// (implements service.Broadcaster)
func (h *Hub) SendToSession(meetingID, sessionID string, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		MeetingID: meetingID,
		ToSession: sessionID,
		Message: &Message{
			Type:    event,
			Payload: data,
		},
	}
}

// DisconnectMeeting closes every connection in a meeting room. Goes through
// the broadcast channel so it lands after any event queued before it
// (implements service.Broadcaster)
func (h *Hub) DisconnectMeeting(meetingID string) {
	h.broadcast <- &BroadcastMessage{
		MeetingID: meetingID,
		Close:     true,
	}
}
