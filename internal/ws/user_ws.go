package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/auth"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// UserSocketHandler manages the per-user realtime channel.
type UserSocketHandler struct {
	hub      *Hub
	users    repositories.UserRepository
	sessions *auth.SessionStore
}

// NewUserSocketHandler constructs a UserSocketHandler.
func NewUserSocketHandler(hub *Hub, users repositories.UserRepository, sessions *auth.SessionStore) *UserSocketHandler {
	return &UserSocketHandler{hub: hub, users: users, sessions: sessions}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers the client under its own user id
// and serves incoming typing events until the peer goes away. Unauthenticated
// attempts are rejected before the upgrade and emit nothing.
func (h *UserSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	userID, err := h.sessions.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		Username:    user.Username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(userID, conn, info)

	// Presence is best effort; a failed touch never tears down the channel.
	_ = h.users.Touch(c.Request.Context(), userID)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, userEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   lifecyclePayload(info, "ws_connect", 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	// Connect/disconnect announcements go to every listener, not just the
	// user's conversation peers.
	h.hub.Broadcast(models.Event{Type: models.EventUserConnected, UserID: userID, Username: user.Username})

	go h.readLoop(conn, info)
}

func (h *UserSocketHandler) readLoop(conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.RemoveClient(info.UserID, conn)
		_ = h.users.Touch(context.Background(), info.UserID)
		h.hub.Broadcast(models.Event{Type: models.EventUserDisconnected, UserID: info.UserID, Username: info.Username})

		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(context.Background(), userEventsRoutingKey, observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   lifecyclePayload(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				_ = observability.PublishEvent(context.Background(), userEventsRoutingKey, observability.EventEnvelope{
					EventType: "ws_events",
					EventName: "ws_error",
					Payload:   lifecyclePayload(info, "ws_error", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
				}, observability.BuildHeaders(info.RequestID, info.TraceID))
			}
			return
		}
		h.dispatchClientEvent(info.UserID, info.Username, raw)
	}
}

// dispatchClientEvent forwards a typing indicator to the named receiver's
// connections. Events without a receiver, malformed payloads and unknown
// types are dropped without a reply.
func (h *UserSocketHandler) dispatchClientEvent(senderID int, senderUsername string, raw []byte) {
	var event models.ClientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return
	}
	if event.ReceiverID == 0 {
		return
	}

	switch event.Type {
	case models.ClientEventTyping:
		observability.IncWSEvent("typing")
		h.hub.SendToUser(event.ReceiverID, models.Event{Type: models.EventUserTyping, UserID: senderID, Username: senderUsername})
	case models.ClientEventStopTyping:
		observability.IncWSEvent("stop_typing")
		h.hub.SendToUser(event.ReceiverID, models.Event{Type: models.EventUserStopTyping, UserID: senderID, Username: senderUsername})
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func lifecyclePayload(info ConnInfo, event string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"username":  info.Username,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
