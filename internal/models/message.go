package models

import "time"

// Message represents a direct message between two users. SenderUsername is
// denormalized on every read so clients never need a second lookup.
type Message struct {
	ID             int       `db:"id" json:"id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	ReceiverID     int       `db:"receiver_id" json:"receiver_id"`
	Content        string    `db:"content" json:"content"`
	Read           bool      `db:"is_read" json:"read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	SenderUsername string    `db:"sender_username" json:"sender_username,omitempty"`
}

// Event is pushed through websocket connections.
type Event struct {
	Type     string   `json:"type"`
	Message  *Message `json:"message,omitempty"`
	UserID   int      `json:"user_id,omitempty"`
	Username string   `json:"username,omitempty"`
}

// ClientEvent is what a connected client may send upstream. Only typing
// indicators exist; anything else is ignored.
type ClientEvent struct {
	Type       string `json:"type"`
	ReceiverID int    `json:"receiver_id"`
}

// Websocket event types.
const (
	EventNewMessage       = "new_message"
	EventUserConnected    = "user_connected"
	EventUserDisconnected = "user_disconnected"
	EventUserTyping       = "user_typing"
	EventUserStopTyping   = "user_stop_typing"

	ClientEventTyping     = "typing"
	ClientEventStopTyping = "stop_typing"
)
