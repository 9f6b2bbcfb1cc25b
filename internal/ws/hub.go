package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// client wraps a live connection with its metadata and a write lock.
// gorilla/websocket supports at most one concurrent writer per connection,
// and both SendToUser and Broadcast may target the same connection from
// different goroutines.
type client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub is the process-wide registry of live websocket connections, keyed by
// user id. A user may hold several connections at once (multiple tabs or
// devices); all of them are addressable through the same key. Entries are
// added on connect and pruned on disconnect or write failure.
type Hub struct {
	rooms map[int]map[*websocket.Conn]*client
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int]map[*websocket.Conn]*client),
	}
}

// AddClient registers a websocket connection under the user's id.
func (h *Hub) AddClient(userID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[userID]; !ok {
		h.rooms[userID] = make(map[*websocket.Conn]*client)
	}
	h.rooms[userID][conn] = &client{conn: conn, info: info}
}

// RemoveClient removes a websocket connection.
func (h *Hub) RemoveClient(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[userID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.rooms, userID)
		}
	}
}

// SendToUser delivers an event to every live connection of one user.
// Fire-and-forget: a user with no connections receives nothing, and failed
// writes close and prune the connection. Persisted history is the fallback.
func (h *Hub) SendToUser(userID int, event models.Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[userID]))
	for _, cl := range h.rooms[userID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, cl := range clients {
		h.deliver(userID, cl, payload)
	}
}

// Broadcast delivers an event to every live connection of every user.
func (h *Hub) Broadcast(event models.Event) {
	h.mu.RLock()
	targets := make(map[int][]*client, len(h.rooms))
	for userID, clients := range h.rooms {
		for _, cl := range clients {
			targets[userID] = append(targets[userID], cl)
		}
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for userID, clients := range targets {
		for _, cl := range clients {
			h.deliver(userID, cl, payload)
		}
	}
}

func (h *Hub) deliver(userID int, cl *client, payload []byte) {
	if err := cl.write(payload); err != nil {
		log.Printf("websocket write error: %v", err)
		cl.conn.Close()
		h.RemoveClient(userID, cl.conn)
		h.publishWSError(cl.info, err)
	}
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"username":  info.Username,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), userEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

const userEventsRoutingKey = "ws_events.users"
