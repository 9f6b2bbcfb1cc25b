package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/mocks"
)

// Publisher interface checks.
var _ Publisher = (*mocks.PublisherMock)(nil)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.accounts", "messaging", "test")

	userID := "42"
	publisher.On("Publish", mock.Anything, "audit.accounts", mock.MatchedBy(func(event any) bool {
		envelope, ok := event.(AuditEnvelope)
		if !ok {
			return false
		}
		return envelope.SchemaVersion == 1 &&
			envelope.EventType == "audit_log" &&
			envelope.Service == "messaging" &&
			envelope.Environment == "test" &&
			envelope.RequestID == "req-1" &&
			envelope.UserID != nil && *envelope.UserID == "42" &&
			envelope.Payload.Level == "info" &&
			envelope.Payload.Text == "user logged in" &&
			envelope.OccurredAt != ""
	})).Return(nil)

	emitter.Emit(context.Background(), "info", "user logged in", "req-1", &userID)

	publisher.AssertExpectations(t)
}

func TestAuditEmitterOmitsUserIDWhenAbsent(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.accounts", "messaging", "test")

	publisher.On("Publish", mock.Anything, "audit.accounts", mock.MatchedBy(func(event any) bool {
		envelope, ok := event.(AuditEnvelope)
		return ok && envelope.UserID == nil
	})).Return(nil)

	emitter.Emit(context.Background(), "info", "registration attempt", "req-2", nil)

	publisher.AssertExpectations(t)
}

// Emission is best effort: a publish failure is logged and swallowed, and a
// nil emitter or publisher is a no-op rather than a panic.
func TestAuditEmitterToleratesFailures(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	emitter := NewAuditEmitter(publisher, "audit.accounts", "messaging", "test")

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "error", "login failed", "req-3", nil)
	})
	publisher.AssertExpectations(t)

	var nilEmitter *AuditEmitter
	assert.NotPanics(t, func() {
		nilEmitter.Emit(context.Background(), "info", "ignored", "req-4", nil)
	})

	noPublisher := NewAuditEmitter(nil, "audit.accounts", "messaging", "test")
	assert.NotPanics(t, func() {
		noPublisher.Emit(context.Background(), "info", "ignored", "req-5", nil)
	})
}
