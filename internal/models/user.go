package models

import "time"

// User is the persisted account record. PasswordHash never leaves the service.
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastSeen     time.Time `db:"last_seen" json:"last_seen"`
}

// UserSummary is the API-facing view of another user.
type UserSummary struct {
	ID       int       `db:"id" json:"id"`
	Username string    `db:"username" json:"username"`
	LastSeen time.Time `db:"last_seen" json:"last_seen"`
}

// ConversationSummary is one row of the recent-conversations list: the single
// most recent message exchanged with a counterpart.
type ConversationSummary struct {
	CounterpartID       int       `db:"counterpart_id" json:"counterpart_id"`
	CounterpartUsername string    `db:"counterpart_username" json:"counterpart_username"`
	LastMessage         string    `db:"last_message" json:"last_message"`
	LastMessageTime     time.Time `db:"last_message_time" json:"last_message_time"`
}
