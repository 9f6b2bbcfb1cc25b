package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

// dialTestClient upgrades a server-side connection, registers it in the hub
// under userID and returns the client end.
func dialTestClient(t *testing.T, hub *Hub, userID int) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient(userID, conn, ConnInfo{ConnID: newConnID(), UserID: userID, ConnectedAt: time.Now()})
	}))
	t.Cleanup(server.Close)

	before := connCount(hub, userID)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// The server side registers after the handshake; wait for it.
	require.Eventually(t, func() bool {
		return connCount(hub, userID) > before
	}, 2*time.Second, 10*time.Millisecond)
	return client
}

func connCount(hub *Hub, userID int) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.rooms[userID])
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var event models.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func expectNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(1, nil, ConnInfo{UserID: 1})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected room to be created")
	}

	hub.RemoveClient(1, nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected room to be removed")
	}
}

func TestSendToUserDeliversPointToPoint(t *testing.T) {
	hub := NewHub()
	receiver := dialTestClient(t, hub, 2)
	bystander := dialTestClient(t, hub, 3)

	msg := models.Message{ID: 1, SenderID: 1, ReceiverID: 2, Content: "hi"}
	hub.SendToUser(2, models.Event{Type: models.EventNewMessage, Message: &msg})

	event := readEvent(t, receiver)
	assert.Equal(t, models.EventNewMessage, event.Type)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hi", event.Message.Content)

	expectNoEvent(t, bystander)
}

func TestSendToUserReachesAllConnectionsOfUser(t *testing.T) {
	hub := NewHub()
	first := dialTestClient(t, hub, 2)
	second := dialTestClient(t, hub, 2)

	hub.SendToUser(2, models.Event{Type: models.EventUserTyping, UserID: 1, Username: "alice"})

	assert.Equal(t, models.EventUserTyping, readEvent(t, first).Type)
	assert.Equal(t, models.EventUserTyping, readEvent(t, second).Type)
}

func TestSendToUserWithoutConnections(t *testing.T) {
	hub := NewHub()

	// fire-and-forget: nothing listening is not an error
	hub.SendToUser(42, models.Event{Type: models.EventNewMessage})
}

func TestConcurrentSendAndBroadcastToSameConnection(t *testing.T) {
	hub := NewHub()
	receiver := dialTestClient(t, hub, 2)

	// Drain the client side so server writes never stall on full buffers.
	go func() {
		for {
			_ = receiver.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, _, err := receiver.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Both paths write to the same connection; the per-connection lock must
	// serialize them.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if n%2 == 0 {
					hub.SendToUser(2, models.Event{Type: models.EventUserTyping, UserID: 1, Username: "alice"})
				} else {
					hub.Broadcast(models.Event{Type: models.EventUserConnected, UserID: 1, Username: "alice"})
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, connCount(hub, 2))
}

func TestBroadcastReachesEveryUser(t *testing.T) {
	hub := NewHub()
	alice := dialTestClient(t, hub, 1)
	bob := dialTestClient(t, hub, 2)

	hub.Broadcast(models.Event{Type: models.EventUserConnected, UserID: 3, Username: "carol"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		event := readEvent(t, conn)
		assert.Equal(t, models.EventUserConnected, event.Type)
		assert.Equal(t, 3, event.UserID)
		assert.Equal(t, "carol", event.Username)
	}
}
