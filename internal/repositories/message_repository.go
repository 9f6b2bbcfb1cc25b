package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID int, content string) (models.Message, error)
	ConversationBetween(ctx context.Context, userID, otherID int) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, readerID, counterpartID int) error
	RecentConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a direct message and returns it with the sender's
// username attached. The insert is a single statement, so concurrent sends
// between the same pair cannot drop or interleave rows.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, receiverID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `WITH inserted AS (
            INSERT INTO messages (sender_id, receiver_id, content)
            VALUES ($1, $2, $3)
            RETURNING id, sender_id, receiver_id, content, is_read, created_at
        )
        SELECT i.id, i.sender_id, i.receiver_id, i.content, i.is_read, i.created_at, u.username AS sender_username
        FROM inserted i JOIN users u ON u.id = i.sender_id`, senderID, receiverID, content).
		StructScan(&msg)
	return msg, err
}

// ConversationBetween returns every message exchanged between the two users in
// either direction, oldest first. Ids break created_at ties since they are
// assigned monotonically.
func (r *MessageRepo) ConversationBetween(ctx context.Context, userID, otherID int) ([]models.Message, error) {
	query := `SELECT m.id, m.sender_id, m.receiver_id, m.content, m.is_read, m.created_at, u.username AS sender_username
        FROM messages m
        JOIN users u ON u.id = m.sender_id
        WHERE (m.sender_id=$1 AND m.receiver_id=$2) OR (m.sender_id=$2 AND m.receiver_id=$1)
        ORDER BY m.created_at ASC, m.id ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, userID, otherID)
	return msgs, err
}

// MarkConversationRead flips every unread message from counterpart to reader.
// Idempotent: a second call matches no rows.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, readerID, counterpartID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE
        WHERE receiver_id=$1 AND sender_id=$2 AND is_read = FALSE`, readerID, counterpartID)
	return err
}

// RecentConversations returns one row per counterpart the user has ever
// exchanged a message with, carrying only the newest message of each pair,
// newest conversation first.
func (r *MessageRepo) RecentConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	query := `SELECT t.counterpart_id, u.username AS counterpart_username,
            t.content AS last_message, t.created_at AS last_message_time
        FROM (
            SELECT DISTINCT ON (CASE WHEN sender_id=$1 THEN receiver_id ELSE sender_id END)
                CASE WHEN sender_id=$1 THEN receiver_id ELSE sender_id END AS counterpart_id,
                content, created_at
            FROM messages
            WHERE sender_id=$1 OR receiver_id=$1
            ORDER BY CASE WHEN sender_id=$1 THEN receiver_id ELSE sender_id END, created_at DESC, id DESC
        ) t
        JOIN users u ON u.id = t.counterpart_id
        ORDER BY t.created_at DESC`
	var convs []models.ConversationSummary
	err := r.db.SelectContext(ctx, &convs, query, userID)
	return convs, err
}
