package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"messaging-service/internal/models"
)

func TestDispatchTypingForwardsToReceiver(t *testing.T) {
	hub := NewHub()
	receiver := dialTestClient(t, hub, 2)
	handler := NewUserSocketHandler(hub, nil, nil)

	handler.dispatchClientEvent(1, "alice", []byte(`{"type":"typing","receiver_id":2}`))

	event := readEvent(t, receiver)
	assert.Equal(t, models.EventUserTyping, event.Type)
	assert.Equal(t, 1, event.UserID)
	assert.Equal(t, "alice", event.Username)
}

func TestDispatchStopTypingForwardsToReceiver(t *testing.T) {
	hub := NewHub()
	receiver := dialTestClient(t, hub, 2)
	handler := NewUserSocketHandler(hub, nil, nil)

	handler.dispatchClientEvent(1, "alice", []byte(`{"type":"stop_typing","receiver_id":2}`))

	event := readEvent(t, receiver)
	assert.Equal(t, models.EventUserStopTyping, event.Type)
}

func TestDispatchTypingWithoutReceiverIsDropped(t *testing.T) {
	hub := NewHub()
	listener := dialTestClient(t, hub, 2)
	handler := NewUserSocketHandler(hub, nil, nil)

	handler.dispatchClientEvent(1, "alice", []byte(`{"type":"typing"}`))

	expectNoEvent(t, listener)
}

func TestDispatchMalformedPayloadIsDropped(t *testing.T) {
	hub := NewHub()
	listener := dialTestClient(t, hub, 2)
	handler := NewUserSocketHandler(hub, nil, nil)

	handler.dispatchClientEvent(1, "alice", []byte(`not json`))
	handler.dispatchClientEvent(1, "alice", []byte(`{"type":"shout","receiver_id":2}`))

	expectNoEvent(t, listener)
}
