package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/ws"
)

// ChatHandler manages direct-messaging endpoints.
type ChatHandler struct {
	users    repositories.UserRepository
	messages repositories.MessageRepository
	hub      *ws.Hub
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(users repositories.UserRepository, messages repositories.MessageRepository, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{users: users, messages: messages, hub: hub}
}

// ListUsers returns every other user, for the contact list.
func (h *ChatHandler) ListUsers(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)

	users, err := h.users.ListOthers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	if users == nil {
		users = []models.UserSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// RecentConversations returns one entry per counterpart, newest first.
func (h *ChatHandler) RecentConversations(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)

	convs, err := h.messages.RecentConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	if convs == nil {
		convs = []models.ConversationSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// GetMessages returns the full conversation with the counterpart, oldest
// first, and marks the caller's unread side of it read. Opening a
// conversation and marking it read are one flow.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	counterpartID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	if _, err := h.users.GetByID(c.Request.Context(), counterpartID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	msgs, err := h.messages.ConversationBetween(c.Request.Context(), userID, counterpartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	if err := h.messages.MarkConversationRead(c.Request.Context(), userID, counterpartID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage stores a direct message and pushes it to the receiver's
// connections. Delivery is fire-and-forget; the stored row is the durable
// copy.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		ReceiverID int    `json:"receiver_id" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing receiver_id or content"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing receiver_id or content"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	if _, err := h.users.GetByID(c.Request.Context(), req.ReceiverID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify receiver"})
		return
	}

	msg, err := h.messages.CreateMessage(c.Request.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	observability.IncMessageSent()
	h.hub.SendToUser(req.ReceiverID, models.Event{Type: models.EventNewMessage, Message: &msg})
	c.JSON(http.StatusCreated, msg)
}

// OnlineUsers returns users other than the caller active within the presence
// window.
func (h *ChatHandler) OnlineUsers(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)

	users, err := h.users.OnlineUsers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load online users"})
		return
	}
	if users == nil {
		users = []models.UserSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"online_users": users})
}
