package recorder

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// SessionEvent is the message broadcast to websocket clients when a session
// changes state.
type SessionEvent struct {
	Type     string    `json:"type"` // recording_started, recording_stopping, recording_finished
	StreamID string    `json:"stream_id"`
	Filename string    `json:"filename,omitempty"`
	At       time.Time `json:"at"`
}

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans session lifecycle events out to connected websocket clients.
type EventHub struct {
	clients    map[*eventClient]bool
	broadcast  chan []byte
	register   chan *eventClient
	unregister chan *eventClient
	mu         sync.RWMutex
	runOnce    sync.Once
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[*eventClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *eventClient),
		unregister: make(chan *eventClient),
	}
}

// Run processes registrations and broadcasts. Call it in its own goroutine.
// Only the first call starts the loop; later calls return immediately, so a
// hub can never end up with two competing loops.
func (h *EventHub) Run() {
	started := false
	h.runOnce.Do(func() { started = true })
	if !started {
		return
	}
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop the message rather than the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NotifySession implements Notifier. It never blocks the supervisor.
func (h *EventHub) NotifySession(event, streamID, filename string) {
	payload, err := json.Marshal(SessionEvent{
		Type:     event,
		StreamID: streamID,
		Filename: filename,
		At:       time.Now(),
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		log.Printf("EventHub: dropping %s event for %s, broadcast buffer full", event, streamID)
	}
}

// ServeWS handles one websocket connection for the lifetime of the client.
func (h *EventHub) ServeWS(c *websocket.Conn) {
	client := &eventClient{
		conn: c,
		send: make(chan []byte, 16),
	}
	h.register <- client

	go client.writePump()
	client.readPump(h)
}

// readPump discards inbound messages; the events channel is one-way. It exits
// when the connection closes, unregistering the client.
func (c *eventClient) readPump(h *EventHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *eventClient) writePump() {
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
}
